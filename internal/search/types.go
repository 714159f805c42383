// Package search implements hybrid expert retrieval: keyword and vector
// channels run in parallel per collection, their scores are fused, and the
// fused list is optionally reordered by a reasoning model.
package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expertscout/expertscout/internal/store"
)

// ScoredCandidate pairs a candidate document with its retrieval scores.
type ScoredCandidate struct {
	Candidate *store.Candidate

	// FusedScore is the combined score after fusion, in [0,1] for
	// NormalizedFusion and unbounded for WeightedRawFusion.
	FusedScore float64

	// KeywordScore and VectorScore are the raw per-channel scores
	// before fusion. Zero when the candidate was absent from a channel.
	KeywordScore float64
	VectorScore  float64

	MatchedTerms []string
}

// Key returns the collection-qualified identity of the candidate.
func (s *ScoredCandidate) Key() string {
	return s.Candidate.Key()
}

// Interpretation is the structured form of a raw user query.
type Interpretation struct {
	Kind        string   // query kind label, e.g. "direct_expert"
	Paraphrases []string // original query first, then enhanced variants
	Keywords    []string // search terms extracted from the query
	Trace       []string // human-readable notes about how each step resolved
}

// summarize renders a candidate as a compact one-line profile for ranking
// prompts. Headline is capped at 100 runes and bio at 200 so a ten-item
// list stays well inside the model's context.
func summarize(i int, c *store.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", i+1, c.Name)
	if h := truncateRunes(c.Headline, 100); h != "" {
		fmt.Fprintf(&b, " — %s", h)
	}
	if len(c.Functions) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(c.Functions, ", "))
	}
	if c.YearsExperience > 0 {
		fmt.Fprintf(&b, " (%.0f yrs)", c.YearsExperience)
	}
	if bio := truncateRunes(c.Bio, 200); bio != "" {
		fmt.Fprintf(&b, ": %s", bio)
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// sortByScore orders candidates by fused score descending. The stable sort
// keeps equal scores in the order they were first retrieved.
func sortByScore(cands []*ScoredCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].FusedScore > cands[j].FusedScore
	})
}
