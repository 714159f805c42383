// Package ingest loads candidate records from JSONL files into the three
// retrieval backends: keyword index, vector store, and document store.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/expertscout/expertscout/internal/embed"
	scouterr "github.com/expertscout/expertscout/internal/errors"
	"github.com/expertscout/expertscout/internal/store"
)

// DefaultBatchSize controls how many records are embedded and indexed per
// round trip.
const DefaultBatchSize = 64

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 1 << 20

// Stats summarizes one ingest run.
type Stats struct {
	Indexed int
	Skipped int
}

// Ingestor writes one collection's records into its three backends.
type Ingestor struct {
	keyword  *store.KeywordIndex
	vector   *store.VectorStore
	docs     *store.DocStore
	embedder embed.Embedder
	logger   *slog.Logger

	BatchSize int
}

// New wires an ingestor for the keyword index's collection.
func New(keyword *store.KeywordIndex, vector *store.VectorStore, docs *store.DocStore, embedder embed.Embedder, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		keyword:   keyword,
		vector:    vector,
		docs:      docs,
		embedder:  embedder,
		logger:    logger,
		BatchSize: DefaultBatchSize,
	}
}

// LoadFile ingests a JSONL file. Malformed lines are logged and skipped;
// only I/O and indexing failures abort the run.
func (ing *Ingestor) LoadFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, scouterr.New(scouterr.ErrCodeStoreIO, "open corpus file "+path, err)
	}
	defer f.Close()

	stats, err := ing.Load(ctx, f)
	if err != nil {
		return stats, err
	}
	ing.logger.Info("corpus file ingested",
		slog.String("path", path),
		slog.String("collection", string(ing.keyword.Collection())),
		slog.Int("indexed", stats.Indexed),
		slog.Int("skipped", stats.Skipped))
	return stats, nil
}

// Load ingests JSONL records from a reader.
func (ing *Ingestor) Load(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats
	collection := ing.keyword.Collection()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	batch := make([]*store.Candidate, 0, ing.batchSize())
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var c store.Candidate
		if err := json.Unmarshal(raw, &c); err != nil {
			ing.logger.Warn("skipping malformed record",
				slog.Int("line", line),
				slog.String("error", err.Error()))
			stats.Skipped++
			continue
		}
		if c.ID <= 0 {
			ing.logger.Warn("skipping record without id", slog.Int("line", line))
			stats.Skipped++
			continue
		}
		if c.Collection == "" {
			c.Collection = collection
		}
		if c.Collection != collection {
			ing.logger.Warn("skipping record for wrong collection",
				slog.Int("line", line),
				slog.String("collection", string(c.Collection)))
			stats.Skipped++
			continue
		}

		batch = append(batch, &c)
		if len(batch) >= ing.batchSize() {
			if err := ing.indexBatch(ctx, batch); err != nil {
				return stats, err
			}
			stats.Indexed += len(batch)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, scouterr.New(scouterr.ErrCodeStoreIO, "read corpus", err)
	}

	if len(batch) > 0 {
		if err := ing.indexBatch(ctx, batch); err != nil {
			return stats, err
		}
		stats.Indexed += len(batch)
	}
	return stats, nil
}

func (ing *Ingestor) indexBatch(ctx context.Context, batch []*store.Candidate) error {
	texts := make([]string, len(batch))
	ids := make([]int64, len(batch))
	indexDocs := make([]store.IndexDoc, len(batch))
	for i, c := range batch {
		text := c.SearchText()
		texts[i] = text
		ids[i] = c.ID
		indexDocs[i] = store.IndexDoc{ID: c.ID, Text: text}
	}

	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return scouterr.Wrap(scouterr.ErrCodeEmbeddingFailed, err)
	}
	if err := ing.vector.Add(ctx, ids, vectors); err != nil {
		return err
	}
	if err := ing.keyword.Index(ctx, indexDocs); err != nil {
		return err
	}
	return ing.docs.Put(ctx, batch)
}

func (ing *Ingestor) batchSize() int {
	if ing.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return ing.BatchSize
}
