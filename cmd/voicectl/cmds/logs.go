package cmds

import (
	"fmt"

	"github.com/dukyai/voicectl/pkg/logtail"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var tailLines int
	var since string

	cmd := &cobra.Command{
		Use:   "logs <service>",
		Short: "Print the tail of a service's log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			_, reg, err := loadStack(opts)
			if err != nil {
				return err
			}

			spec, ok := reg.Lookup(args[0])
			if !ok {
				return errors.Errorf("unknown service %q (known: %v)", args[0], reg.Names())
			}
			if spec.LogPath == "" {
				return errors.Errorf("service %q has no log path configured", spec.Name)
			}

			lines, err := logtail.Lines(spec.LogPath, tailLines, 2<<20)
			if err != nil {
				return err
			}

			if since != "" {
				ts, err := logtail.ParseSince(since)
				if err != nil {
					return err
				}
				lines = logtail.FilterSince(lines, ts)
			}

			for _, line := range lines {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&tailLines, "tail-lines", 50, "How many lines to print from the end of the log")
	cmd.Flags().StringVar(&since, "since", "", "Drop lines older than this timestamp (free-form, e.g. \"2024-06-01 10:00\")")
	return cmd
}
