package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder(128)
	defer e.Close()
	ctx := context.Background()

	a, err := e.Embed(ctx, "supply chain logistics")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "supply chain logistics")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 128)
}

func TestStaticEmbedder_SimilarTextsScoreCloser(t *testing.T) {
	e := NewStaticEmbedder(256)
	defer e.Close()
	ctx := context.Background()

	base, _ := e.Embed(ctx, "supply chain logistics expert")
	near, _ := e.Embed(ctx, "logistics and supply chain specialist")
	far, _ := e.Embed(ctx, "renaissance oil painting restoration")

	assert.Greater(t, dot(base, near), dot(base, far))
}

func TestStaticEmbedder_BlankInputIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(64)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "   ")

	require.NoError(t, err)
	assert.Equal(t, ZeroVector(64), vec)
}

func TestStaticEmbedder_UnitLength(t *testing.T) {
	e := NewStaticEmbedder(256)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "machine learning")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, dot(vec, vec), 1e-5)
}

func TestOllamaEmbedder_EmbedAndBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		n := 1
		if inputs, ok := req.Input.([]any); ok {
			n = len(inputs)
		}
		out := make([][]float64, n)
		for i := range out {
			v := make([]float64, 4)
			v[i%4] = 1
			out[i] = v
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: out})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Dimensions: 4, BatchSize: 2, MaxRetries: 0})
	ctx := context.Background()

	vec, err := e.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 4)

	vecs, err := e.EmbedBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
}

func TestOllamaEmbedder_BlankInputSkipsService(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Dimensions: 8})

	vec, err := e.Embed(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, ZeroVector(8), vec)
	assert.Zero(t, calls.Load())
}

func TestOllamaEmbedder_DimensionMismatchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float64{{1, 2}}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Dimensions: 4, MaxRetries: 0})

	_, err := e.Embed(context.Background(), "hello")

	assert.Error(t, err)
}

func TestCachedEmbedder_HitsSkipInner(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float64{{1, 0, 0, 0}}})
	}))
	defer srv.Close()

	c := NewCachedEmbedder(
		NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Dimensions: 4, MaxRetries: 0}), 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Embed(ctx, "same text")
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), calls.Load())
}

func TestCachedEmbedder_BatchOnlyEmbedsMissing(t *testing.T) {
	inner := NewStaticEmbedder(32)
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := c.Embed(ctx, "cached")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(ctx, []string{"cached", "fresh"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	for _, v := range vecs {
		assert.Len(t, v, 32)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return math.Round(sum*1e9) / 1e9
}
