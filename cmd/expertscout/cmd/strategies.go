package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// patternQualityFloor hides patterns that have not proven themselves.
const patternQualityFloor = 0.7

func newStrategiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "Show learned strategy performance and query patterns",
		Long: `Show learned strategy performance and query patterns.

Strategies are scored with an exponential moving average over past
searches, so recent outcomes weigh more. Query patterns map phrases
that appeared in successful searches to the strategy that served them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStrategies(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runStrategies(ctx context.Context, cmd *cobra.Command) error {
	printer := newPrinter(cmd)

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	printer.Strategies(a.learner.Strategies(), a.learner.SuccessfulPatterns(patternQualityFloor))
	return nil
}
