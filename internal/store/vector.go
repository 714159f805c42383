package store

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// VectorStore indexes candidate embeddings with an HNSW graph and a
// retained vector table for brute-force fallback and persistence.
type VectorStore struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config VectorStoreConfig

	// Candidate id <-> internal graph key. Keys are never reused so
	// replaced vectors can be lazily abandoned in the graph.
	idMap   map[int64]uint64
	keyMap  map[uint64]int64
	nextKey uint64

	// vectors keeps the normalized vector per candidate id for
	// BruteSearch and for rebuilding the graph on load.
	vectors map[int64][]float32

	closed bool
}

// vectorSnapshot is the gob-persisted state.
type vectorSnapshot struct {
	Config  VectorStoreConfig
	Vectors map[int64][]float32
}

// NewVectorStore creates an empty vector store.
func NewVectorStore(cfg VectorStoreConfig) (*VectorStore, error) {
	if cfg.Dimensions < 1 {
		return nil, fmt.Errorf("vector store needs positive dimensions, got %d", cfg.Dimensions)
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	s := &VectorStore{
		config:  cfg,
		idMap:   make(map[int64]uint64),
		keyMap:  make(map[uint64]int64),
		vectors: make(map[int64][]float32),
	}
	s.graph = s.newGraph()
	return s, nil
}

func (s *VectorStore) newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = s.config.M
	g.EfSearch = s.config.EfSearch
	g.Ml = 0.25
	return g
}

// Add inserts or replaces vectors for the given candidate ids.
// Vectors are normalized; replaced graph nodes are abandoned rather
// than deleted.
func (s *VectorStore) Add(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	for _, v := range vectors {
		if len(v) != s.config.Dimensions {
			return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(v)}
		}
	}

	for i, id := range ids {
		if oldKey, exists := s.idMap[id]; exists {
			delete(s.keyMap, oldKey)
			delete(s.idMap, id)
		}

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeInPlace(vec)

		key := s.nextKey
		s.nextKey++

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
		s.vectors[id] = vec
	}
	return nil
}

// Search finds the k nearest candidates by cosine similarity. An
// all-zero query vector yields zero-score hits rather than an error.
func (s *VectorStore) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("vector store is closed")
	}
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}
	if s.graph.Len() == 0 {
		return []Hit{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if isZeroVector(q) {
		// Degenerate query: return arbitrary candidates at score 0 so
		// the caller's fusion still sees the channel as empty-weight.
		return s.bruteSearchLocked(q, k), nil
	}
	normalizeInPlace(q)

	nodes := s.graph.Search(q, k)
	hits := make([]Hit, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			// Abandoned node from a replaced vector.
			continue
		}
		distance := s.graph.Distance(q, node.Value)
		hits = append(hits, Hit{ID: id, Score: cosineDistanceToScore(distance)})
	}
	return hits, nil
}

// BruteSearch scans every stored vector with a dot product. Used when
// graph search is unsuitable, and by tests as a reference ranking.
func (s *VectorStore) BruteSearch(query []float32, k int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("vector store is closed")
	}
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeInPlace(q)
	return s.bruteSearchLocked(q, k), nil
}

func (s *VectorStore) bruteSearchLocked(q []float32, k int) []Hit {
	hits := make([]Hit, 0, len(s.vectors))
	for id, vec := range s.vectors {
		var dot float64
		for i := range q {
			dot += float64(q[i]) * float64(vec[i])
		}
		if dot < 0 {
			dot = 0
		}
		hits = append(hits, Hit{ID: id, Score: dot})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Count returns the number of stored vectors.
func (s *VectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	return len(s.vectors)
}

// Dimensions returns the configured vector width.
func (s *VectorStore) Dimensions() int {
	return s.config.Dimensions
}

// Save persists the store to disk (temp file + rename).
func (s *VectorStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create vector store directory: %w", err)
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create vector store file: %w", err)
	}

	snap := vectorSnapshot{Config: s.config, Vectors: s.vectors}
	if err := gob.NewEncoder(file).Encode(snap); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode vector store: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close vector store file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load replaces the store contents from disk, rebuilding the graph.
func (s *VectorStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open vector store file: %w", err)
	}
	defer file.Close()

	var snap vectorSnapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return fmt.Errorf("decode vector store: %w", err)
	}

	s.config = snap.Config
	s.vectors = snap.Vectors
	if s.vectors == nil {
		s.vectors = make(map[int64][]float32)
	}
	s.idMap = make(map[int64]uint64, len(s.vectors))
	s.keyMap = make(map[uint64]int64, len(s.vectors))
	s.nextKey = 0
	s.graph = s.newGraph()

	for id, vec := range s.vectors {
		key := s.nextKey
		s.nextKey++
		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
	}
	return nil
}

// Close releases resources.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

// normalizeInPlace normalizes a vector to unit length in place.
// A zero vector is left untouched.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

func isZeroVector(v []float32) bool {
	for _, val := range v {
		if val != 0 {
			return false
		}
	}
	return true
}

// cosineDistanceToScore maps cosine distance [0,2] to similarity [0,1].
func cosineDistanceToScore(distance float32) float64 {
	return float64(1.0 - distance/2.0)
}
