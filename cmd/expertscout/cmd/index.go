package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/expertscout/expertscout/internal/ingest"
	"github.com/expertscout/expertscout/internal/store"
)

func newIndexCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "index <collection> <file.jsonl>",
		Short: "Load a JSONL corpus into the search indexes",
		Long: `Load a JSONL corpus into the search indexes.

Each line is one record. Records are written to the keyword index, the
vector index, and the document store for the named collection
("experts" or "projects"). Malformed lines are skipped with a warning.

Examples:
  expertscout index experts experts.jsonl
  expertscout index projects projects.jsonl --batch 128`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd, store.Collection(args[0]), args[1], batchSize)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch", ingest.DefaultBatchSize, "Records per embedding batch")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, collection store.Collection, path string, batchSize int) error {
	if !collection.Valid() {
		return fmt.Errorf("unknown collection %q (want %q or %q)",
			collection, store.CollectionExperts, store.CollectionProjects)
	}

	printer := newPrinter(cmd)

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ing := ingest.New(a.keywords[collection], a.vectors[collection], a.docs, a.embedder, slog.Default())
	ing.BatchSize = batchSize

	start := time.Now()
	stats, err := ing.LoadFile(ctx, path)
	if err != nil {
		return err
	}
	if err := a.saveVectors(); err != nil {
		return err
	}

	printer.Infof("indexed %d records into %s (%d skipped) in %s",
		stats.Indexed, collection, stats.Skipped, time.Since(start).Round(time.Millisecond))
	return nil
}
