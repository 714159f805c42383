package learning

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStore_StrategiesRoundTrip(t *testing.T) {
	// Given a file-backed store
	path := filepath.Join(t.TempDir(), "learning.db")
	s, err := NewSQLStore(path)
	require.NoError(t, err)

	lastUsed := time.Date(2026, 2, 14, 9, 30, 0, 123456789, time.UTC)
	in := map[string]*Strategy{
		StrategyDirectExpert: {
			Name:        StrategyDirectExpert,
			SuccessRate: 0.7123456789,
			AvgQuality:  0.65,
			UsageCount:  42,
			LastUsed:    lastUsed,
		},
	}
	require.NoError(t, s.SaveStrategies(context.Background(), in))
	require.NoError(t, s.Close())

	// When reopened
	s, err = NewSQLStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.LoadStrategies(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Then floats and sub-second timestamps survive
	st := got[StrategyDirectExpert]
	assert.Equal(t, 0.7123456789, st.SuccessRate)
	assert.Equal(t, 42, st.UsageCount)
	assert.True(t, st.LastUsed.Equal(lastUsed))
}

func TestSQLStore_SaveStrategiesUpserts(t *testing.T) {
	s, err := NewSQLStore("")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SaveStrategies(ctx, map[string]*Strategy{
		StrategyDirectExpert: {Name: StrategyDirectExpert, SuccessRate: 0.7},
	}))
	require.NoError(t, s.SaveStrategies(ctx, map[string]*Strategy{
		StrategyDirectExpert: {Name: StrategyDirectExpert, SuccessRate: 0.8, UsageCount: 1},
	}))

	got, err := s.LoadStrategies(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.8, got[StrategyDirectExpert].SuccessRate)
}

func TestSQLStore_RecordsAppendOnly(t *testing.T) {
	s, err := NewSQLStore("")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	satisfaction := 0.85
	ts := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendRecords(ctx, []*LearningRecord{
		{Query: "first", Strategy: StrategyDirectExpert, Quality: 0.9, CandidateIDs: []int64{1, 2, 3}, Timestamp: ts},
		{Query: "second", Strategy: StrategyProjectBased, Quality: 0.4, Satisfaction: &satisfaction, Timestamp: ts.Add(time.Minute)},
	}))
	require.NoError(t, s.AppendRecords(ctx, []*LearningRecord{
		{Query: "third", Strategy: StrategyDirectExpert, Quality: 0.6, Timestamp: ts.Add(2 * time.Minute)},
	}))

	got, err := s.LoadRecords(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Insertion order preserved
	assert.Equal(t, "first", got[0].Query)
	assert.Equal(t, []int64{1, 2, 3}, got[0].CandidateIDs)
	assert.Nil(t, got[0].Satisfaction)
	require.NotNil(t, got[1].Satisfaction)
	assert.Equal(t, 0.85, *got[1].Satisfaction)
	assert.True(t, got[2].Timestamp.Equal(ts.Add(2*time.Minute)))
}

func TestSQLStore_PatternsRoundTrip(t *testing.T) {
	s, err := NewSQLStore("")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SavePatterns(ctx, map[string]*QueryPattern{
		"logistics": {Phrase: "logistics", BestStrategy: StrategyProjectBased, AvgQuality: 0.88, Count: 3},
	}))

	got, err := s.LoadPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, StrategyProjectBased, got["logistics"].BestStrategy)
	assert.Equal(t, 0.88, got["logistics"].AvgQuality)
	assert.Equal(t, 3, got["logistics"].Count)
}

func TestSQLStore_EmptyLoads(t *testing.T) {
	s, err := NewSQLStore("")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	strategies, err := s.LoadStrategies(ctx)
	require.NoError(t, err)
	assert.Empty(t, strategies)

	records, err := s.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLearner_DataDirLockExclusive(t *testing.T) {
	// Given a learner holding the data-dir lock
	dir := t.TempDir()
	first := newTestLearner(t, NewMemStore(), Options{DataDir: dir})
	defer first.Close(context.Background())

	// When a second learner tries the same dir
	_, err := NewLearner(context.Background(), NewMemStore(), Options{DataDir: dir})

	// Then it is refused with the locked code
	require.Error(t, err)
}

func TestLearner_PersistsAcrossRestart(t *testing.T) {
	// Given outcomes recorded and closed cleanly
	path := filepath.Join(t.TempDir(), "learning.db")
	store, err := NewSQLStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	l := newTestLearner(t, store, Options{})
	l.RecordOutcome(ctx, LearningRecord{
		Query: "supply chain director", Strategy: StrategyDirectExpert, Quality: 0.9,
	})
	require.NoError(t, l.Close(ctx))
	require.NoError(t, store.Close())

	// When a fresh learner loads the same database
	store, err = NewSQLStore(path)
	require.NoError(t, err)
	defer store.Close()
	l = newTestLearner(t, store, Options{})

	// Then the EMA update and the learned pattern survive
	st := strategyByName(t, l, StrategyDirectExpert)
	assert.InDelta(t, 0.72, st.SuccessRate, 1e-6)
	assert.Equal(t, 1, st.UsageCount)
	assert.NotEmpty(t, l.SuccessfulPatterns(0.7))
	assert.Len(t, l.RecentSuccessful(10), 1)
}
