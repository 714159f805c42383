package search

import (
	"sort"

	"github.com/expertscout/expertscout/internal/store"
)

// DefaultFusionAlpha weights the vector channel in normalized fusion.
const DefaultFusionAlpha = 0.6

// Default channel weights for weighted raw fusion.
const (
	DefaultKeywordWeight = 1.2
	DefaultVectorWeight  = 1.5
)

// Fuser combines keyword and vector hits for one collection into a single
// scored list. Input lists may contain duplicate IDs (one entry per
// paraphrase that matched); how duplicates combine is policy-specific.
type Fuser interface {
	Fuse(keyword, vector []store.Hit) []store.Hit
}

// NormalizedFusion scales each channel to [0,1] by its maximum score, then
// blends: fused = alpha*vector + (1-alpha)*keyword. Duplicate IDs within a
// channel keep their maximum score, so a candidate matched by several
// paraphrases is not rewarded for repetition.
type NormalizedFusion struct {
	Alpha float64 // vector weight in [0,1]; zero value means DefaultFusionAlpha
}

// NewNormalizedFusion returns a fuser with the default alpha.
func NewNormalizedFusion() *NormalizedFusion {
	return &NormalizedFusion{Alpha: DefaultFusionAlpha}
}

func (f *NormalizedFusion) alpha() float64 {
	if f.Alpha <= 0 || f.Alpha > 1 {
		return DefaultFusionAlpha
	}
	return f.Alpha
}

// Fuse blends the two channels. Fused scores are in [0,1]: each channel is
// divided by its own max before blending, and an empty channel contributes 0
// (a zero max uses divisor 1.0 rather than dividing by zero).
func (f *NormalizedFusion) Fuse(keyword, vector []store.Hit) []store.Hit {
	kw := mergeMax(keyword)
	vec := mergeMax(vector)
	if len(kw) == 0 && len(vec) == 0 {
		return []store.Hit{}
	}

	kwMax := maxScore(kw)
	vecMax := maxScore(vec)
	if kwMax == 0 {
		kwMax = 1.0
	}
	if vecMax == 0 {
		vecMax = 1.0
	}

	a := f.alpha()
	fused := make(map[int64]*store.Hit, len(kw)+len(vec))
	order := make([]int64, 0, len(kw)+len(vec))
	for _, h := range kw {
		fused[h.ID] = &store.Hit{
			ID:           h.ID,
			Score:        (1 - a) * (h.Score / kwMax),
			MatchedTerms: h.MatchedTerms,
		}
		order = append(order, h.ID)
	}
	for _, h := range vec {
		if existing, ok := fused[h.ID]; ok {
			existing.Score += a * (h.Score / vecMax)
			continue
		}
		fused[h.ID] = &store.Hit{ID: h.ID, Score: a * (h.Score / vecMax)}
		order = append(order, h.ID)
	}

	return collectHits(fused, order)
}

// WeightedRawFusion keeps raw channel scores and combines them with fixed
// multipliers: keyword*1.2 + vector*1.5. Unlike NormalizedFusion, duplicate
// contributions are summed, so repeated matches across paraphrases
// accumulate. Scores are unbounded.
type WeightedRawFusion struct {
	KeywordWeight float64
	VectorWeight  float64
}

// NewWeightedRawFusion returns a fuser with the default channel weights.
func NewWeightedRawFusion() *WeightedRawFusion {
	return &WeightedRawFusion{
		KeywordWeight: DefaultKeywordWeight,
		VectorWeight:  DefaultVectorWeight,
	}
}

// Fuse sums weighted contributions per ID across both channels.
func (f *WeightedRawFusion) Fuse(keyword, vector []store.Hit) []store.Hit {
	kwW := f.KeywordWeight
	if kwW <= 0 {
		kwW = DefaultKeywordWeight
	}
	vecW := f.VectorWeight
	if vecW <= 0 {
		vecW = DefaultVectorWeight
	}

	fused := make(map[int64]*store.Hit, len(keyword)+len(vector))
	order := make([]int64, 0, len(keyword)+len(vector))
	for _, h := range keyword {
		if existing, ok := fused[h.ID]; ok {
			existing.Score += kwW * h.Score
			existing.MatchedTerms = unionTerms(existing.MatchedTerms, h.MatchedTerms)
			continue
		}
		fused[h.ID] = &store.Hit{
			ID:           h.ID,
			Score:        kwW * h.Score,
			MatchedTerms: h.MatchedTerms,
		}
		order = append(order, h.ID)
	}
	for _, h := range vector {
		if existing, ok := fused[h.ID]; ok {
			existing.Score += vecW * h.Score
			continue
		}
		fused[h.ID] = &store.Hit{ID: h.ID, Score: vecW * h.Score}
		order = append(order, h.ID)
	}

	return collectHits(fused, order)
}

// mergeMax collapses duplicate IDs in first-seen order, keeping the highest
// score per ID and unioning matched terms.
func mergeMax(hits []store.Hit) []store.Hit {
	idx := make(map[int64]int, len(hits))
	out := make([]store.Hit, 0, len(hits))
	for _, h := range hits {
		i, ok := idx[h.ID]
		if !ok {
			idx[h.ID] = len(out)
			out = append(out, h)
			continue
		}
		if h.Score > out[i].Score {
			out[i].Score = h.Score
		}
		out[i].MatchedTerms = unionTerms(out[i].MatchedTerms, h.MatchedTerms)
	}
	return out
}

func maxScore(hits []store.Hit) float64 {
	max := 0.0
	for _, h := range hits {
		if h.Score > max {
			max = h.Score
		}
	}
	return max
}

func unionTerms(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a))
	for _, t := range a {
		seen[t] = true
	}
	for _, t := range b {
		if !seen[t] {
			a = append(a, t)
			seen[t] = true
		}
	}
	return a
}

// collectHits flattens the merge in first-seen order before sorting, so
// equal fused scores come out in the order the channels returned them.
func collectHits(m map[int64]*store.Hit, order []int64) []store.Hit {
	out := make([]store.Hit, 0, len(order))
	for _, id := range order {
		out = append(out, *m[id])
	}
	sortHits(out)
	return out
}

// sortHits orders by score descending. Ties keep their incoming order.
func sortHits(hits []store.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}
