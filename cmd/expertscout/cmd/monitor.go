package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/expertscout/expertscout/internal/monitor"
)

func newMonitorCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Retry below-target searches in the background",
		Long: `Retry below-target searches in the background.

Sessions whose best search never reached their quality target are
re-run on an interval, up to a retry cap, in case new corpus data or
better-learned strategies produce a stronger answer. Runs until
interrupted; use --once for a single sweep.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context(), cmd, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single sweep and exit")

	return cmd
}

func runMonitor(ctx context.Context, cmd *cobra.Command, once bool) error {
	printer := newPrinter(cmd)

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	m := monitor.New(a.sessions, a.orchestrator, nil)
	if cfg.Monitor.IntervalSecs > 0 {
		m.Interval = cfg.MonitorInterval()
	}
	if cfg.Monitor.MaxAttempts > 0 {
		m.MaxAttempts = cfg.Monitor.MaxAttempts
	}

	if once {
		ran := m.Sweep(ctx)
		printer.Infof("sweep complete: %d searches retried", ran)
		return nil
	}

	printer.Infof("monitoring below-target sessions every %s (ctrl-c to stop)", m.Interval)
	m.Start(ctx)
	return nil
}
