package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeywordIndex(t *testing.T) *KeywordIndex {
	t.Helper()
	idx, err := NewKeywordIndex("", CollectionExperts)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestSanitizeKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"strips punctuation", []string{"supply!", "chain?"}, []string{"supply", "chain"}},
		{"drops single chars", []string{"a", "ml", "x"}, []string{"ml"}},
		{"keeps hyphens", []string{"go-to-market"}, []string{"go-to-market"}},
		{"caps at ten", []string{
			"one", "two", "three", "four", "five", "six",
			"seven", "eight", "nine", "ten", "eleven",
		}, []string{
			"one", "two", "three", "four", "five", "six",
			"seven", "eight", "nine", "ten",
		}},
		{"empty in empty out", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeKeywords(tt.in))
		})
	}
}

func TestKeywordIndex_SearchFindsIndexedDoc(t *testing.T) {
	// Given an index with a couple of expert profiles
	idx := newTestKeywordIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []IndexDoc{
		{ID: 1, Text: "supply chain logistics expert based in Singapore"},
		{ID: 2, Text: "machine learning researcher focused on vision"},
	}))

	// When searching for supply chain keywords
	hits, err := idx.Search(ctx, []string{"supply", "chain"}, 10)
	require.NoError(t, err)

	// Then the logistics expert ranks first
	require.NotEmpty(t, hits)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestKeywordIndex_EmptyKeywordsReturnNoHits(t *testing.T) {
	idx := newTestKeywordIndex(t)

	hits, err := idx.Search(context.Background(), []string{"!", "?"}, 10)

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestKeywordIndex_FuzzyMatchToleratesTypo(t *testing.T) {
	idx := newTestKeywordIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []IndexDoc{
		{ID: 7, Text: "renewable energy policy advisor"},
	}))

	hits, err := idx.Search(ctx, []string{"renewble"}, 10)

	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, int64(7), hits[0].ID)
}

func TestKeywordIndex_Count(t *testing.T) {
	idx := newTestKeywordIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []IndexDoc{
		{ID: 1, Text: "one"}, {ID: 2, Text: "two"}, {ID: 3, Text: "three"},
	}))

	assert.Equal(t, 3, idx.Count())
}

func TestKeywordIndex_ClosedIndexErrors(t *testing.T) {
	idx := newTestKeywordIndex(t)
	require.NoError(t, idx.Close())

	_, err := idx.Search(context.Background(), []string{"anything"}, 10)
	assert.Error(t, err)

	err = idx.Index(context.Background(), []IndexDoc{{ID: 1, Text: "x"}})
	assert.Error(t, err)
}
