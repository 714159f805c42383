package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertscout/expertscout/internal/session"
	"github.com/expertscout/expertscout/internal/workflow"
)

// stubSearcher returns a fixed quality and counts invocations.
type stubSearcher struct {
	calls   atomic.Int32
	quality float64
	err     error
}

func (s *stubSearcher) Run(_ context.Context, query string) (*workflow.SearchResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &workflow.SearchResult{
		Query:      query,
		Quality:    s.quality,
		Strategies: []string{"direct_expert"},
	}, nil
}

func saveSession(t *testing.T, m *session.Manager, quality float64) *session.Session {
	t.Helper()
	s := session.New(0.8)
	s.AddSearch(session.HistoryEntry{Query: "supply chain expert", Quality: quality})
	require.NoError(t, m.Save(s))
	return s
}

func TestMonitor_SweepRetriesBelowTarget(t *testing.T) {
	// Given one weak and one satisfied session
	sessions, err := session.NewManager(t.TempDir())
	require.NoError(t, err)
	weak := saveSession(t, sessions, 0.4)
	saveSession(t, sessions, 0.9)

	searcher := &stubSearcher{quality: 0.85}
	mon := New(sessions, searcher, nil)

	ran := mon.Sweep(context.Background())

	// Then only the weak session is retried, and its history grows
	assert.Equal(t, 1, ran)
	assert.Equal(t, int32(1), searcher.calls.Load())

	got, err := sessions.Load(weak.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MonitorAttempts)
	assert.Equal(t, 2, got.SearchCount)
	assert.Equal(t, 0.85, got.BestQuality)
}

func TestMonitor_RetryThatSucceedsStopsFutureSweeps(t *testing.T) {
	sessions, err := session.NewManager(t.TempDir())
	require.NoError(t, err)
	saveSession(t, sessions, 0.4)

	searcher := &stubSearcher{quality: 0.9}
	mon := New(sessions, searcher, nil)

	assert.Equal(t, 1, mon.Sweep(context.Background()))
	// Best quality now clears the target, nothing left to retry
	assert.Equal(t, 0, mon.Sweep(context.Background()))
}

func TestMonitor_MaxAttemptsRespected(t *testing.T) {
	// Given retries that never reach the target
	sessions, err := session.NewManager(t.TempDir())
	require.NoError(t, err)
	saveSession(t, sessions, 0.4)

	searcher := &stubSearcher{quality: 0.5}
	mon := New(sessions, searcher, nil)
	mon.MaxAttempts = 3

	ctx := context.Background()
	total := 0
	for i := 0; i < 5; i++ {
		total += mon.Sweep(ctx)
	}

	// Then the session is retried exactly three times and then left alone
	assert.Equal(t, 3, total)
	assert.Equal(t, int32(3), searcher.calls.Load())
}

func TestMonitor_FailedRunStillCountsAttempt(t *testing.T) {
	sessions, err := session.NewManager(t.TempDir())
	require.NoError(t, err)
	weak := saveSession(t, sessions, 0.4)

	searcher := &stubSearcher{err: errors.New("index offline")}
	mon := New(sessions, searcher, nil)

	mon.Sweep(context.Background())

	got, err := sessions.Load(weak.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MonitorAttempts)
	// No history entry for a failed run
	assert.Equal(t, 1, got.SearchCount)
}

func TestMonitor_SkipsSessionHeldByForeground(t *testing.T) {
	// Given a foreground search holding the session lock
	sessions, err := session.NewManager(t.TempDir())
	require.NoError(t, err)
	weak := saveSession(t, sessions, 0.4)

	searcher := &stubSearcher{quality: 0.9}
	mon := New(sessions, searcher, nil)

	lock := mon.SessionLock(weak.ID)
	lock.Lock()
	defer lock.Unlock()

	// Then the sweep leaves that session for the next pass
	assert.Equal(t, 0, mon.Sweep(context.Background()))
	assert.Equal(t, int32(0), searcher.calls.Load())
}
