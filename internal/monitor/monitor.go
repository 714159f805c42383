// Package monitor re-runs searches in the background for sessions that
// finished below their quality target, in case new corpus data or learned
// strategies produce a better answer.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/expertscout/expertscout/internal/session"
	"github.com/expertscout/expertscout/internal/workflow"
)

// Defaults for the background loop.
const (
	DefaultInterval    = 30 * time.Minute
	DefaultMaxAttempts = 3
)

// Searcher runs one search; satisfied by *workflow.Orchestrator.
type Searcher interface {
	Run(ctx context.Context, query string) (*workflow.SearchResult, error)
}

// Monitor periodically sweeps below-target sessions and re-issues their
// last query. A per-session mutex keeps a background retry from racing a
// foreground search updating the same session.
type Monitor struct {
	sessions *session.Manager
	searcher Searcher
	logger   *slog.Logger

	Interval    time.Duration
	MaxAttempts int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires a monitor over the session store and a searcher.
func New(sessions *session.Manager, searcher Searcher, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		sessions:    sessions,
		searcher:    searcher,
		logger:      logger,
		Interval:    DefaultInterval,
		MaxAttempts: DefaultMaxAttempts,
		locks:       make(map[string]*sync.Mutex),
	}
}

// SessionLock returns the mutex guarding one session's state. Foreground
// code updating a monitored session should hold it too.
func (m *Monitor) SessionLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// Start runs the sweep loop until the context is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	m.logger.Info("background monitor started",
		slog.Duration("interval", m.Interval),
		slog.Int("max_attempts", m.MaxAttempts))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("background monitor stopped")
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep retries every below-target session that still has attempts left.
// It returns how many retries ran. Sessions whose lock is held by a
// foreground search are skipped until the next sweep.
func (m *Monitor) Sweep(ctx context.Context) int {
	candidates, err := m.sessions.BelowTarget()
	if err != nil {
		m.logger.Warn("monitor sweep could not list sessions", slog.String("error", err.Error()))
		return 0
	}

	ran := 0
	for _, s := range candidates {
		if ctx.Err() != nil {
			return ran
		}
		if s.MonitorAttempts >= m.MaxAttempts {
			continue
		}
		query := s.LastQuery()
		if query == "" {
			continue
		}

		lock := m.SessionLock(s.ID)
		if !lock.TryLock() {
			m.logger.Debug("session busy, skipping retry", slog.String("session", s.ID))
			continue
		}
		m.retry(ctx, s, query)
		lock.Unlock()
		ran++
	}
	return ran
}

func (m *Monitor) retry(ctx context.Context, s *session.Session, query string) {
	m.logger.Info("retrying below-target search",
		slog.String("session", s.ID),
		slog.String("query", query),
		slog.Int("attempt", s.MonitorAttempts+1))

	s.MonitorAttempts++
	res, err := m.searcher.Run(ctx, query)
	if err != nil {
		m.logger.Warn("background retry failed",
			slog.String("session", s.ID),
			slog.String("error", err.Error()))
	} else {
		strategy := ""
		if len(res.Strategies) > 0 {
			strategy = res.Strategies[len(res.Strategies)-1]
		}
		s.AddSearch(session.HistoryEntry{
			Query:       query,
			Strategy:    strategy,
			Quality:     res.Quality,
			ResultCount: len(res.Candidates),
		})
	}

	if err := m.sessions.Save(s); err != nil {
		m.logger.Warn("saving retried session failed",
			slog.String("session", s.ID),
			slog.String("error", err.Error()))
	}
}
