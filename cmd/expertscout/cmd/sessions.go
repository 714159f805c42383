package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	var (
		limit       int
		belowTarget bool
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List search sessions",
		Long: `List search sessions, most recent first.

Each session shows its running quality stats and a sparkline over its
search history. Use --below-target to see only the sessions the
background monitor is still working on.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSessions(cmd.Context(), cmd, limit, belowTarget)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum sessions to list (0 for all)")
	cmd.Flags().BoolVar(&belowTarget, "below-target", false, "Only sessions below their quality target")

	cmd.AddCommand(newSessionsDeleteCmd())

	return cmd
}

func runSessions(ctx context.Context, cmd *cobra.Command, limit int, belowTarget bool) error {
	printer := newPrinter(cmd)

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	sessions, err := a.sessions.List(limit)
	if err != nil {
		return err
	}
	if belowTarget {
		sessions, err = a.sessions.BelowTarget()
		if err != nil {
			return err
		}
	}

	printer.Sessions(sessions)
	return nil
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := newPrinter(cmd)

			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.sessions.Delete(args[0]); err != nil {
				return err
			}
			printer.Infof("deleted session %s", args[0])
			return nil
		},
	}
}
