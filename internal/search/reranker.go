package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/expertscout/expertscout/internal/llm"
)

// rerankWindow is how many top candidates are offered to the reasoning
// model. Anything past the window keeps its fused order.
const rerankWindow = 10

// Reranker reorders a fused candidate list using the reasoning model, with
// a keyword-occurrence fallback when the model declines or is unavailable.
// Reranking never drops candidates, it only reorders them.
type Reranker struct {
	reasoner llm.Reasoner
}

// NewReranker wires a reranker to a reasoning model. A nil reasoner is
// allowed and always takes the fallback path.
func NewReranker(reasoner llm.Reasoner) *Reranker {
	return &Reranker{reasoner: reasoner}
}

// Rerank reorders cands by relevance to the query. It returns the reordered
// slice and a trace describing which path was taken.
//
// Lists of three or fewer are returned untouched: the fused order is already
// as good as a model could make it at that size. Otherwise the top ten are
// summarized and sent to the model for a permutation; candidates the model
// left out keep their fused order after the permuted ones, and everything
// past the window follows unchanged.
func (r *Reranker) Rerank(ctx context.Context, query string, cands []*ScoredCandidate) ([]*ScoredCandidate, string) {
	if len(cands) <= 3 {
		return cands, "no reranking needed"
	}

	window := cands
	if len(window) > rerankWindow {
		window = window[:rerankWindow]
	}

	if r.reasoner != nil {
		summaries := make([]string, len(window))
		for i, c := range window {
			summaries[i] = summarize(i, c.Candidate)
		}
		perm, rationale, err := r.reasoner.RankOrder(ctx, query, summaries)
		if err == nil && len(perm) > 0 {
			reordered := applyPermutation(window, perm)
			reordered = append(reordered, cands[len(window):]...)
			return reordered, fmt.Sprintf("reranked by reasoning model: %s", rationale)
		}
	}

	reordered := rerankByKeywordOccurrence(query, window)
	reordered = append(reordered, cands[len(window):]...)
	return reordered, "reranked by keyword occurrence"
}

// applyPermutation reorders window per the 0-based permutation, then appends
// any indices the permutation did not mention in their original order.
func applyPermutation(window []*ScoredCandidate, perm []int) []*ScoredCandidate {
	out := make([]*ScoredCandidate, 0, len(window))
	used := make([]bool, len(window))
	for _, idx := range perm {
		if idx < 0 || idx >= len(window) || used[idx] {
			continue
		}
		out = append(out, window[idx])
		used[idx] = true
	}
	for i, c := range window {
		if !used[i] {
			out = append(out, c)
		}
	}
	return out
}

// rerankByKeywordOccurrence orders the window by how many query keywords
// appear in each candidate's search text. Ties keep the fused order.
func rerankByKeywordOccurrence(query string, window []*ScoredCandidate) []*ScoredCandidate {
	keywords := llm.HeuristicKeywords(query)
	if len(keywords) == 0 {
		out := make([]*ScoredCandidate, len(window))
		copy(out, window)
		return out
	}

	counts := make(map[*ScoredCandidate]int, len(window))
	for _, c := range window {
		text := strings.ToLower(c.Candidate.SearchText())
		n := 0
		for _, kw := range keywords {
			n += strings.Count(text, kw)
		}
		counts[c] = n
	}

	out := make([]*ScoredCandidate, len(window))
	copy(out, window)
	// Stable sort keeps fused order on ties.
	sort.SliceStable(out, func(i, j int) bool {
		return counts[out[i]] > counts[out[j]]
	})
	return out
}
