package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/expertscout/expertscout/internal/config"
	"github.com/expertscout/expertscout/internal/embed"
	"github.com/expertscout/expertscout/internal/feedback"
	"github.com/expertscout/expertscout/internal/learning"
	"github.com/expertscout/expertscout/internal/llm"
	"github.com/expertscout/expertscout/internal/search"
	"github.com/expertscout/expertscout/internal/session"
	"github.com/expertscout/expertscout/internal/store"
	"github.com/expertscout/expertscout/internal/telemetry"
	"github.com/expertscout/expertscout/internal/workflow"
)

// collections are the corpora every command operates over.
var collections = []store.Collection{store.CollectionExperts, store.CollectionProjects}

// app holds the wired pipeline for one CLI invocation. Open everything
// up front, close everything on the way out.
type app struct {
	cfg      *config.Config
	embedder embed.Embedder
	reasoner llm.Reasoner

	docs     *store.DocStore
	keywords map[store.Collection]*store.KeywordIndex
	vectors  map[store.Collection]*store.VectorStore

	learner   *learning.Learner
	collector *telemetry.Collector
	sessions  *session.Manager
	feedback  *feedback.Manager

	orchestrator *workflow.Orchestrator

	closers []func()
}

// openApp builds the full pipeline from configuration. Components that
// need a remote service fall back to their offline implementation when
// the service is disabled in config.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		keywords: make(map[store.Collection]*store.KeywordIndex),
		vectors:  make(map[store.Collection]*store.VectorStore),
	}

	dataDir := cfg.Storage.DataDir
	for _, dir := range []string{dataDir, filepath.Join(dataDir, "index"), filepath.Join(dataDir, "vectors")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			a.close()
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	a.embedder = newEmbedder(ctx, cfg)
	a.closers = append(a.closers, func() { _ = a.embedder.Close() })
	a.reasoner = newReasoner(ctx, cfg)

	docs, err := store.NewDocStore(filepath.Join(dataDir, "docs.db"))
	if err != nil {
		a.close()
		return nil, err
	}
	a.docs = docs
	a.closers = append(a.closers, func() { _ = docs.Close() })

	for _, col := range collections {
		kw, err := store.NewKeywordIndex(filepath.Join(dataDir, "index", string(col)+".bleve"), col)
		if err != nil {
			a.close()
			return nil, err
		}
		a.keywords[col] = kw
		a.closers = append(a.closers, func() { _ = kw.Close() })

		vs, err := store.NewVectorStore(store.DefaultVectorStoreConfig(a.embedder.Dimensions()))
		if err != nil {
			a.close()
			return nil, err
		}
		snapshot := a.vectorPath(col)
		if _, statErr := os.Stat(snapshot); statErr == nil {
			if err := vs.Load(snapshot); err != nil {
				a.close()
				return nil, err
			}
		}
		a.vectors[col] = vs
		a.closers = append(a.closers, func() { _ = vs.Close() })
	}

	lstore, err := learning.NewSQLStore(filepath.Join(dataDir, "learning.db"))
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = lstore.Close() })

	learner, err := learning.NewLearner(ctx, lstore, learning.Options{
		Alpha:      cfg.Learner.Alpha,
		FlushEvery: cfg.Learner.FlushEvery,
		DataDir:    dataDir,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.learner = learner
	a.closers = append(a.closers, func() { _ = learner.Close(context.Background()) })

	a.collector = telemetry.NewCollector(telemetry.DefaultCapacity)

	sessions, err := session.NewManager(dataDir)
	if err != nil {
		a.close()
		return nil, err
	}
	a.sessions = sessions

	fb, err := feedback.NewManager(dataDir, learner)
	if err != nil {
		a.close()
		return nil, err
	}
	a.feedback = fb

	a.orchestrator = a.newOrchestrator()
	return a, nil
}

// newOrchestrator assembles the search pipeline from the open stores.
func (a *app) newOrchestrator() *workflow.Orchestrator {
	channels := make(map[store.Collection]*search.Channels, len(collections))
	for _, col := range collections {
		channels[col] = &search.Channels{Keyword: a.keywords[col], Vector: a.vectors[col]}
	}
	source := search.NewSource(channels, a.docs, a.embedder, nil)
	if a.cfg.Search.TopK > 0 {
		source.TopK = a.cfg.Search.TopK
	}

	scorer := search.NewQualityScorer()
	if a.cfg.Search.RelevanceThreshold > 0 {
		scorer.RelevanceThreshold = a.cfg.Search.RelevanceThreshold
	}

	o := workflow.NewOrchestrator(
		search.NewInterpreter(a.reasoner, nil),
		search.NewExecutor(source, a.newFuser(), a.reasoner, nil),
		search.NewReranker(a.reasoner),
		scorer,
		a.learner,
		a.collector,
		nil,
	)
	if a.cfg.Learner.TargetQuality > 0 {
		o.TargetQuality = a.cfg.Learner.TargetQuality
	}
	if a.cfg.Learner.MaxIterations > 0 {
		o.MaxIterations = a.cfg.Learner.MaxIterations
	}
	if a.cfg.Search.KeepTop > 0 {
		o.KeepTop = a.cfg.Search.KeepTop
	}
	return o
}

// newFuser picks the fusion policy from config.
func (a *app) newFuser() search.Fuser {
	if a.cfg.Search.FusionPolicy == "weighted_raw" {
		return &search.WeightedRawFusion{
			KeywordWeight: a.cfg.Search.KeywordWeight,
			VectorWeight:  a.cfg.Search.VectorWeight,
		}
	}
	return &search.NormalizedFusion{Alpha: a.cfg.Search.Alpha}
}

// saveVectors snapshots every vector store to disk. Called after ingest;
// the keyword index and doc store persist themselves.
func (a *app) saveVectors() error {
	for _, col := range collections {
		if err := a.vectors[col].Save(a.vectorPath(col)); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) vectorPath(col store.Collection) string {
	return filepath.Join(a.cfg.Storage.DataDir, "vectors", string(col)+".gob")
}

// close releases resources in reverse open order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newEmbedder returns the remote embedder when enabled and reachable,
// otherwise the deterministic static embedder at the configured width.
func newEmbedder(ctx context.Context, cfg *config.Config) embed.Embedder {
	dims := cfg.Embedder.Dimensions
	if dims <= 0 {
		dims = embed.DefaultDimensions
	}
	if !cfg.Embedder.Enabled {
		return embed.NewStaticEmbedder(dims)
	}

	remote := embed.NewOllamaEmbedder(embed.OllamaConfig{
		Host:       cfg.Embedder.Endpoint,
		Model:      cfg.Embedder.Model,
		Dimensions: dims,
		Timeout:    cfg.EmbedderTimeout(),
	})
	if !remote.Available(ctx) {
		slog.Warn("embedding service unavailable, using static embeddings",
			slog.String("endpoint", cfg.Embedder.Endpoint))
		_ = remote.Close()
		return embed.NewStaticEmbedder(dims)
	}
	return embed.NewCachedEmbedder(remote, cfg.Embedder.CacheSize)
}

// newReasoner returns the remote reasoner when enabled, otherwise the
// heuristic reasoner. The remote reasoner degrades per call, so no
// availability probe is needed here.
func newReasoner(_ context.Context, cfg *config.Config) llm.Reasoner {
	if !cfg.Reasoner.Enabled {
		return llm.NewHeuristicReasoner()
	}
	return llm.NewOllamaReasoner(llm.Config{
		Host:      cfg.Reasoner.Endpoint,
		Model:     cfg.Reasoner.Model,
		Timeout:   cfg.ReasonerTimeout(),
		CacheSize: cfg.Reasoner.CacheSize,
	})
}
