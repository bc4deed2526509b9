package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/dukyai/voicectl/pkg/orchestrator"
	"github.com/dukyai/voicectl/pkg/tui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var probe bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the observed state of every registered service",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			_, reg, err := loadStack(opts)
			if err != nil {
				return err
			}

			o := orchestrator.New(reg, orchestrator.Options{ShutdownTimeout: opts.Timeout})

			if watch {
				return tui.RunWatch(cmd.Context(), o)
			}

			snaps := o.Snapshot(cmd.Context(), probe, nil)
			b, err := json.MarshalIndent(map[string]any{"services": snaps}, "", "  ")
			if err != nil {
				return errors.Wrap(err, "marshal status")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Issue one health probe per contracted service")
	cmd.Flags().BoolVar(&watch, "watch", false, "Render a live-updating dashboard")
	return cmd
}
