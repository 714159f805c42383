// Package llm provides the reasoning service behind query
// interpretation, reranking, and profile generation. The remote
// reasoner speaks the Ollama generate API; every call site degrades to
// the deterministic heuristic reasoner when the service misbehaves.
package llm

import (
	"context"
)

// QueryKind tags the retrieval approach a query calls for.
type QueryKind string

const (
	KindDirectExpert       QueryKind = "direct_expert"
	KindProjectBased       QueryKind = "project_based"
	KindSkillDecomposition QueryKind = "skill_decomposition"
	KindNetworkExpansion   QueryKind = "network_expansion"
	KindSemanticSimilarity QueryKind = "semantic_similarity"
)

// Valid reports whether k is a known query kind.
func (k QueryKind) Valid() bool {
	switch k {
	case KindDirectExpert, KindProjectBased, KindSkillDecomposition,
		KindNetworkExpansion, KindSemanticSimilarity:
		return true
	}
	return false
}

// Reasoner answers the reasoning questions the search workflow asks.
// The string return on most methods is a rationale for the reasoning
// trace; implementations fill it even on the fallback path.
type Reasoner interface {
	// Generate runs a raw prompt and returns the completion.
	Generate(ctx context.Context, prompt string) (string, error)

	// Classify tags a query as project-based or direct expert search.
	Classify(ctx context.Context, query string) (QueryKind, string, error)

	// EnhanceQuery produces up to n paraphrases of the query.
	EnhanceQuery(ctx context.Context, query string, n int) ([]string, string, error)

	// ExtractKeywords pulls search keywords out of the query.
	ExtractKeywords(ctx context.Context, query string) ([]string, string, error)

	// RankOrder returns a 0-based permutation of summaries by relevance
	// to the query, or nil when no reliable ordering is available.
	RankOrder(ctx context.Context, query string, summaries []string) ([]int, string, error)

	// ExpertProfile describes the ideal expert for a project.
	ExpertProfile(ctx context.Context, projectDescription string) (string, error)

	// Available probes whether the backing service is reachable.
	Available(ctx context.Context) bool
}
