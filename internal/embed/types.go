// Package embed turns text into vectors for the semantic retrieval
// channel. The Ollama embedder calls a local embedding model; the
// static embedder is a deterministic offline fallback. A failed embed
// never aborts a search: callers substitute ZeroVector and continue on
// the keyword channel alone.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultDimensions matches the all-minilm model family.
	DefaultDimensions = 384

	// DefaultBatchSize is the batch size for embedding requests.
	DefaultBatchSize = 32

	// DefaultTimeout bounds one embedding API call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the retry budget for transient failures.
	DefaultMaxRetries = 3
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding width.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// ZeroVector returns the all-zero vector used when embedding fails;
// it contributes score 0 on the vector channel without erroring.
func ZeroVector(dims int) []float32 {
	return make([]float32, dims)
}

// normalizeVector normalizes a vector to unit length.
// A zero vector is returned as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
