package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertscout/expertscout/internal/store"
)

func TestNormalizedFusion_BlendsChannels(t *testing.T) {
	// Given raw hits on different scales in each channel
	f := NewNormalizedFusion()
	kw := []store.Hit{
		{ID: 1, Score: 8.0, MatchedTerms: []string{"supply"}},
		{ID: 2, Score: 4.0},
	}
	vec := []store.Hit{
		{ID: 1, Score: 0.9},
		{ID: 3, Score: 0.6},
	}

	// When fused
	fused := f.Fuse(kw, vec)

	// Then every score is in [0,1] and the dual-channel hit ranks first
	require.Len(t, fused, 3)
	for _, h := range fused {
		assert.GreaterOrEqual(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0)
	}
	assert.Equal(t, int64(1), fused[0].ID)
	// 0.4*(8/8) + 0.6*(0.9/0.9) = 1.0
	assert.InDelta(t, 1.0, fused[0].Score, 1e-9)
	// keyword-only: 0.4*(4/8) = 0.2
	assert.InDelta(t, 0.2, scoreOf(t, fused, 2), 1e-9)
	// vector-only: 0.6*(0.6/0.9) = 0.4
	assert.InDelta(t, 0.4, scoreOf(t, fused, 3), 1e-9)
}

func TestNormalizedFusion_DuplicatesKeepMax(t *testing.T) {
	// Given the same candidate matched by two paraphrases in one channel
	f := NewNormalizedFusion()
	kw := []store.Hit{
		{ID: 7, Score: 3.0},
		{ID: 7, Score: 5.0},
		{ID: 8, Score: 5.0},
	}

	// When fused with no vector hits
	fused := f.Fuse(kw, nil)

	// Then the duplicate keeps its max, not the sum: both normalize to the
	// same keyword share
	require.Len(t, fused, 2)
	assert.InDelta(t, scoreOf(t, fused, 7), scoreOf(t, fused, 8), 1e-9)
}

func TestNormalizedFusion_ZeroMaxUsesUnitDivisor(t *testing.T) {
	// Given a vector channel where every score is zero (zero query vector)
	f := NewNormalizedFusion()
	kw := []store.Hit{{ID: 1, Score: 2.0}}
	vec := []store.Hit{{ID: 1, Score: 0.0}, {ID: 2, Score: 0.0}}

	fused := f.Fuse(kw, vec)

	// Then nothing blows up and zero-score hits stay at the keyword share
	require.Len(t, fused, 2)
	assert.InDelta(t, 0.4, scoreOf(t, fused, 1), 1e-9)
	assert.InDelta(t, 0.0, scoreOf(t, fused, 2), 1e-9)
}

func TestNormalizedFusion_EmptyChannels(t *testing.T) {
	f := NewNormalizedFusion()
	fused := f.Fuse(nil, nil)
	assert.NotNil(t, fused)
	assert.Empty(t, fused)
}

func TestWeightedRawFusion_SumsWeightedContributions(t *testing.T) {
	// Given raw hits in both channels
	f := NewWeightedRawFusion()
	kw := []store.Hit{{ID: 1, Score: 2.0}, {ID: 2, Score: 1.0}}
	vec := []store.Hit{{ID: 1, Score: 1.0}}

	fused := f.Fuse(kw, vec)

	// Then the dual-channel hit accumulates 1.2*2 + 1.5*1
	require.Len(t, fused, 2)
	assert.InDelta(t, 3.9, scoreOf(t, fused, 1), 1e-9)
	assert.InDelta(t, 1.2, scoreOf(t, fused, 2), 1e-9)
}

func TestWeightedRawFusion_DuplicatesAccumulate(t *testing.T) {
	// Given the same candidate twice in the keyword channel
	f := NewWeightedRawFusion()
	kw := []store.Hit{{ID: 5, Score: 1.0}, {ID: 5, Score: 1.0}}

	fused := f.Fuse(kw, nil)

	// Then contributions sum, unlike the normalized policy
	require.Len(t, fused, 1)
	assert.InDelta(t, 2.4, fused[0].Score, 1e-9)
}

func TestFusion_DeterministicOrder(t *testing.T) {
	f := NewNormalizedFusion()
	kw := []store.Hit{{ID: 3, Score: 1.0}, {ID: 1, Score: 1.0}, {ID: 2, Score: 1.0}}

	fused := f.Fuse(kw, nil)

	// Equal scores keep the order the channel returned them in
	require.Len(t, fused, 3)
	assert.Equal(t, int64(3), fused[0].ID)
	assert.Equal(t, int64(1), fused[1].ID)
	assert.Equal(t, int64(2), fused[2].ID)
}

func TestFusion_TiesAcrossChannelsKeepRetrievalOrder(t *testing.T) {
	// keyword 2*2 and vector 1*4 both fuse to exactly 4.0
	f := &WeightedRawFusion{KeywordWeight: 2, VectorWeight: 4}
	kw := []store.Hit{{ID: 9, Score: 2.0}}
	vec := []store.Hit{{ID: 4, Score: 1.0}}

	fused := f.Fuse(kw, vec)

	// Keyword hits were retrieved first, so ID 9 stays ahead of ID 4
	require.Len(t, fused, 2)
	assert.Equal(t, int64(9), fused[0].ID)
	assert.Equal(t, int64(4), fused[1].ID)
	assert.InDelta(t, fused[0].Score, fused[1].Score, 1e-9)
}

func scoreOf(t *testing.T, hits []store.Hit, id int64) float64 {
	t.Helper()
	for _, h := range hits {
		if h.ID == id {
			return h.Score
		}
	}
	t.Fatalf("hit %d not found", id)
	return 0
}
