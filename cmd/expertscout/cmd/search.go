package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/expertscout/expertscout/internal/session"
	"github.com/expertscout/expertscout/internal/workflow"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	sessionID string
	format    string // "text", "json"
	trace     bool
	stats     bool
	watch     bool // keep the session monitored until target quality is met
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed corpus for experts",
		Long: `Search the indexed corpus for experts.

The search runs iteratively: each iteration picks a strategy the
learner expects to work, retrieves over both the keyword and semantic
channels, fuses and reranks, and scores the result. Iterations stop
when the quality target is reached or the strategy budget runs out.

Examples:
  expertscout search "supply chain expert in southeast asia"
  expertscout search "renewable energy advisor" --trace
  expertscout search "logistics lead" --format json
  expertscout search "pricing expert" --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.sessionID, "session", "s", "", "Continue an existing session")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print the state machine trace")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "Print per-strategy telemetry for this run")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Keep retrying in the background monitor until the quality target is met")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	printer := newPrinter(cmd)

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := resolveSession(a, opts.sessionID)
	if err != nil {
		return err
	}

	slog.Info("search started",
		slog.String("query", query),
		slog.String("session", sess.ID))

	res, err := a.orchestrator.Run(ctx, query)
	if err != nil {
		return err
	}

	sess.AddSearch(session.HistoryEntry{
		Query:       query,
		Strategy:    lastStrategy(res),
		Quality:     res.Quality,
		ResultCount: len(res.Candidates),
		Timestamp:   time.Now(),
	})
	if opts.watch {
		if sess.Metadata == nil {
			sess.Metadata = make(map[string]string)
		}
		sess.Metadata["watch"] = "true"
	}
	if err := a.sessions.Save(sess); err != nil {
		slog.Warn("saving session failed", slog.String("error", err.Error()))
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printer.SearchResult(res)
	if opts.trace {
		printer.Infof("")
		printer.Traces(res)
	}
	if opts.stats {
		printer.Infof("")
		printer.Telemetry(a.collector.Summaries(), a.collector.ZeroResultQueries())
	}
	printer.Infof("\nsession %s", sess.ID)
	if opts.watch && res.Quality < sess.TargetQuality {
		printer.Infof("below target quality %.2f; run 'expertscout monitor' to keep retrying", sess.TargetQuality)
	}
	return nil
}

// resolveSession loads the named session or starts a fresh one at the
// configured target quality.
func resolveSession(a *app, id string) (*session.Session, error) {
	if id == "" {
		return session.New(a.cfg.Learner.TargetQuality), nil
	}
	return a.sessions.Load(id)
}

func lastStrategy(res *workflow.SearchResult) string {
	if len(res.Strategies) == 0 {
		return ""
	}
	return res.Strategies[len(res.Strategies)-1]
}
