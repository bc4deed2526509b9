package cmds

import (
	"fmt"

	"github.com/dukyai/voicectl/pkg/orchestrator"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Terminate every process matching a registered service pattern",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			_, reg, err := loadStack(opts)
			if err != nil {
				// Stop is best-effort by contract: report the problem but
				// never fail the caller over configuration.
				log.Error().Err(err).Msg("cannot load service catalog; nothing stopped")
				return nil
			}

			bus, cancel, err := startConsoleBus(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			o := orchestrator.New(reg, orchestrator.Options{
				ShutdownTimeout: opts.Timeout,
				Events:          bus,
			})

			counts := o.RunStop(cmd.Context())
			drainBus()

			total := 0
			for _, n := range counts {
				total += n
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stopped %d process(es)\n", total)
			return nil
		},
	}
}
