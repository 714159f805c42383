package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// Weights for static vector generation.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var staticTokenRE = regexp.MustCompile(`[a-zA-Z0-9]+`)

// StaticEmbedder generates embeddings by hashing tokens and character
// n-grams into a fixed-width vector. Deterministic and offline; lexical
// overlap stands in for semantic similarity when no model is available.
type StaticEmbedder struct {
	dims   int
	mu     sync.RWMutex
	closed bool
}

// NewStaticEmbedder creates a static embedder with the given width.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed generates an embedding for one text. Blank input yields the
// zero vector.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ZeroVector(e.dims), nil
	}

	vector := make([]float32, e.dims)

	for _, token := range staticTokenRE.FindAllString(strings.ToLower(trimmed), -1) {
		vector[hashToIndex(token, e.dims)] += tokenWeight
	}

	compact := compactLetters(trimmed)
	for i := 0; i+ngramSize <= len(compact); i++ {
		vector[hashToIndex(compact[i:i+ngramSize], e.dims)] += ngramWeight
	}

	return normalizeVector(vector), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		results[i] = emb
	}
	return results, nil
}

// Dimensions returns the embedding width.
func (e *StaticEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string {
	return "static"
}

// Available reports readiness; the static embedder has no dependency.
func (e *StaticEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close releases resources.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// compactLetters lowercases and strips everything but letters and
// digits, for n-gram extraction.
func compactLetters(text string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// hashToIndex maps a string to a vector index with FNV-64.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

var _ Embedder = (*StaticEmbedder)(nil)
