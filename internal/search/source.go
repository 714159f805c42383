package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/expertscout/expertscout/internal/embed"
	scouterr "github.com/expertscout/expertscout/internal/errors"
	"github.com/expertscout/expertscout/internal/store"
)

// DefaultTopK is the per-channel hit limit for one retrieval pass.
const DefaultTopK = 10

// Channels bundles the keyword and vector index for one collection.
type Channels struct {
	Keyword *store.KeywordIndex
	Vector  *store.VectorStore
}

// Source runs hybrid retrieval against one or more collections. Both
// channels execute concurrently; a failure in one channel degrades to
// partial results from the other, and only a total failure is an error.
type Source struct {
	channels map[store.Collection]*Channels
	docs     *store.DocStore
	embedder embed.Embedder
	logger   *slog.Logger

	// TopK is the per-channel limit for one retrieval pass.
	TopK int
}

// NewSource wires a retrieval source over per-collection channels.
func NewSource(channels map[store.Collection]*Channels, docs *store.DocStore, embedder embed.Embedder, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		channels: channels,
		docs:     docs,
		embedder: embedder,
		logger:   logger,
		TopK:     DefaultTopK,
	}
}

// Docs exposes the document store for enrichment lookups.
func (s *Source) Docs() *store.DocStore {
	return s.docs
}

// HasCollection reports whether a channel pair is registered for c.
func (s *Source) HasCollection(c store.Collection) bool {
	_, ok := s.channels[c]
	return ok
}

// Retrieve fans every query out over both channels of the collection and
// returns the accumulated per-channel hit lists. Duplicate IDs within a
// channel keep their maximum score, so a candidate matched by several
// paraphrases counts once per channel.
//
// Each channel task that fails is logged and contributes nothing; the call
// only errors when every task failed or the collection is unknown.
func (s *Source) Retrieve(ctx context.Context, collection store.Collection, queries []string) (keyword, vector []store.Hit, err error) {
	ch, ok := s.channels[collection]
	if !ok {
		return nil, nil, scouterr.New(scouterr.ErrCodeIndexUnavailable,
			"no index registered for collection "+string(collection), nil)
	}

	limit := s.TopK
	if limit <= 0 {
		limit = DefaultTopK
	}

	var (
		mu       sync.Mutex
		kwHits   []store.Hit
		vecHits  []store.Hit
		failures int
		tasks    int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, q := range queries {
		query := q
		tasks += 2

		// Keyword channel matches exact terms, so it searches the
		// sanitized tokens of each paraphrase.
		g.Go(func() error {
			terms := store.SanitizeKeywords(strings.Fields(query))
			hits, searchErr := ch.Keyword.Search(gctx, terms, limit)
			mu.Lock()
			defer mu.Unlock()
			if searchErr != nil {
				failures++
				s.logger.Warn("keyword search failed",
					slog.String("collection", string(collection)),
					slog.String("error", searchErr.Error()))
				return nil
			}
			kwHits = append(kwHits, hits...)
			return nil
		})

		// Vector channel embeds the full paraphrase; the embedding
		// model handles semantics better than token matching.
		g.Go(func() error {
			vec, embedErr := s.embedder.Embed(gctx, query)
			if embedErr == nil {
				var searchErr error
				var hits []store.Hit
				hits, searchErr = ch.Vector.Search(gctx, vec, limit)
				mu.Lock()
				defer mu.Unlock()
				if searchErr != nil {
					failures++
					s.logger.Warn("vector search failed",
						slog.String("collection", string(collection)),
						slog.String("error", searchErr.Error()))
					return nil
				}
				vecHits = append(vecHits, hits...)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			failures++
			s.logger.Warn("query embedding failed",
				slog.String("collection", string(collection)),
				slog.String("error", embedErr.Error()))
			return nil
		})
	}

	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, waitErr
	}
	if tasks > 0 && failures == tasks {
		return nil, nil, scouterr.New(scouterr.ErrCodeSearchFailed,
			"all retrieval channels failed for collection "+string(collection), nil)
	}

	return dedupeMax(kwHits), dedupeMax(vecHits), nil
}

// SearchKeywords runs a keyword-only lookup, used by strategies that fan
// out over individual skills or functions.
func (s *Source) SearchKeywords(ctx context.Context, collection store.Collection, terms []string, limit int) ([]store.Hit, error) {
	ch, ok := s.channels[collection]
	if !ok {
		return nil, scouterr.New(scouterr.ErrCodeIndexUnavailable,
			"no index registered for collection "+string(collection), nil)
	}
	return ch.Keyword.Search(ctx, store.SanitizeKeywords(terms), limit)
}

// Hydrate turns fused hits into scored candidates by loading the full
// documents. Hits whose documents are missing from the store are skipped
// with a warning. Per-channel scores are attached for quality scoring.
func (s *Source) Hydrate(ctx context.Context, collection store.Collection, fused, keyword, vector []store.Hit) ([]*ScoredCandidate, error) {
	if len(fused) == 0 {
		return []*ScoredCandidate{}, nil
	}

	ids := make([]int64, len(fused))
	for i, h := range fused {
		ids[i] = h.ID
	}
	docs, err := s.docs.GetByIDs(ctx, collection, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*store.Candidate, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	kwByID := hitIndex(keyword)
	vecByID := hitIndex(vector)

	out := make([]*ScoredCandidate, 0, len(fused))
	for _, h := range fused {
		doc, ok := byID[h.ID]
		if !ok {
			s.logger.Warn("fused hit has no stored document",
				slog.String("collection", string(collection)),
				slog.Int64("id", h.ID))
			continue
		}
		sc := &ScoredCandidate{
			Candidate:    doc,
			FusedScore:   h.Score,
			MatchedTerms: h.MatchedTerms,
		}
		if kw, ok := kwByID[h.ID]; ok {
			sc.KeywordScore = kw.Score
		}
		if vec, ok := vecByID[h.ID]; ok {
			sc.VectorScore = vec.Score
		}
		out = append(out, sc)
	}
	return out, nil
}

// dedupeMax collapses duplicate IDs without changing relative order beyond
// the score-descending resort.
func dedupeMax(hits []store.Hit) []store.Hit {
	if len(hits) == 0 {
		return hits
	}
	out := mergeMax(hits)
	sortHits(out)
	return out
}

func hitIndex(hits []store.Hit) map[int64]store.Hit {
	m := make(map[int64]store.Hit, len(hits))
	for _, h := range hits {
		m[h.ID] = h
	}
	return m
}
