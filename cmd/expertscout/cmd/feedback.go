package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/expertscout/expertscout/internal/feedback"
)

func newFeedbackCmd() *cobra.Command {
	var (
		sessionID    string
		comment      string
		candidateIDs []int64
	)

	cmd := &cobra.Command{
		Use:   "feedback <query> <satisfaction>",
		Short: "Record how satisfying a search was",
		Long: `Record how satisfying a search was.

Satisfaction is a score in [0,1]. Feedback feeds back into strategy
learning: satisfied queries strengthen the strategy that served them.

Examples:
  expertscout feedback "supply chain expert" 0.9
  expertscout feedback "pricing expert" 0.3 --comment "mostly juniors"
  expertscout feedback "logistics lead" 0.8 --candidate 12 --candidate 31`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			satisfaction, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("satisfaction must be a number in [0,1]: %w", err)
			}
			return runFeedback(cmd.Context(), cmd, feedback.Record{
				SessionID:    sessionID,
				Query:        args[0],
				CandidateIDs: candidateIDs,
				Satisfaction: satisfaction,
				Comment:      comment,
				Timestamp:    time.Now(),
			})
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session the search ran in")
	cmd.Flags().StringVarP(&comment, "comment", "c", "", "Free-form comment")
	cmd.Flags().Int64SliceVar(&candidateIDs, "candidate", nil, "Candidate id the feedback applies to (repeatable)")

	return cmd
}

func runFeedback(ctx context.Context, cmd *cobra.Command, rec feedback.Record) error {
	printer := newPrinter(cmd)

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.feedback.Add(ctx, rec); err != nil {
		return err
	}

	printer.Infof("feedback recorded for %q (satisfaction %.2f)", rec.Query, rec.Satisfaction)
	return nil
}
