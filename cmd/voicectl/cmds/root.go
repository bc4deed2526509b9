package cmds

import (
	"github.com/spf13/cobra"
)

func AddCommands(root *cobra.Command) error {
	root.AddCommand(newStartCmd())
	root.AddCommand(newStopCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newLogsCmd())

	// Bare invocation means start, matching how the stack has always been
	// brought up.
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return runStart(cmd, startFlags{})
	}
	return nil
}
