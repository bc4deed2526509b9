package cmds

import (
	"context"
	"fmt"
	"time"

	"github.com/dukyai/voicectl/pkg/events"
	"github.com/dukyai/voicectl/pkg/orchestrator"
	"github.com/dukyai/voicectl/pkg/report"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type startFlags struct {
	Strict bool
	JSON   bool
}

func newStartCmd() *cobra.Command {
	var flags startFlags

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Launch the stack in order and verify health contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.Strict, "strict", false, "Exit non-zero when the run ends degraded")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Print the report as JSON")
	return cmd
}

func runStart(cmd *cobra.Command, flags startFlags) error {
	opts, err := getRootOptions(cmd)
	if err != nil {
		return err
	}
	cfg, reg, err := loadStack(opts)
	if err != nil {
		return err
	}

	settle := opts.Settle
	if settle <= 0 {
		settle = cfg.Settle()
	}

	bus, cancel, err := startConsoleBus(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	o := orchestrator.New(reg, orchestrator.Options{
		Settle:          settle,
		ShutdownTimeout: opts.Timeout,
		Events:          bus,
	})

	rep := o.RunStart(cmd.Context())
	drainBus()

	if flags.JSON {
		b, err := rep.MarshalIndent()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	} else {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), report.Render(rep))
	}

	if flags.Strict && rep.Degraded() {
		return errors.New("run degraded")
	}
	return nil
}

// startConsoleBus wires an in-memory event bus with a console reporter and
// waits for the router to be consuming before anything is published.
func startConsoleBus(cmd *cobra.Command) (*events.Bus, context.CancelFunc, error) {
	bus, err := events.NewInMemoryBus()
	if err != nil {
		return nil, nil, err
	}
	bus.AddHandler("console", events.ConsoleHandler(cmd.ErrOrStderr()))

	ctx, cancel := context.WithCancel(cmd.Context())
	go func() { _ = bus.Run(ctx) }()

	select {
	case <-bus.Router.Running():
	case <-time.After(2 * time.Second):
		cancel()
		return nil, nil, errors.New("event router did not start")
	}
	return bus, cancel, nil
}

// drainBus gives the router a moment to deliver buffered events before the
// process moves on to printing the report.
func drainBus() {
	time.Sleep(100 * time.Millisecond)
}
