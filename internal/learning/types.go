// Package learning tracks which search strategies work for which queries
// and feeds that history back into strategy selection. Statistics live in
// memory and flush to a sqlite store in batches.
package learning

import (
	"time"
)

// The five built-in strategies and their seed success rates. Seeds reflect
// rough priors: semantic search usually lands, network expansion is the
// long shot.
const (
	StrategyDirectExpert       = "direct_expert"
	StrategyProjectBased       = "project_based"
	StrategySkillDecomposition = "skill_decomposition"
	StrategyNetworkExpansion   = "network_expansion"
	StrategySemanticSimilarity = "semantic_similarity"
)

// seedRates maps each built-in strategy to its initial success rate.
var seedRates = map[string]float64{
	StrategyDirectExpert:       0.7,
	StrategyProjectBased:       0.6,
	StrategySkillDecomposition: 0.65,
	StrategyNetworkExpansion:   0.5,
	StrategySemanticSimilarity: 0.75,
}

// StrategyNames returns the built-in strategy names in a fixed order.
func StrategyNames() []string {
	return []string{
		StrategyDirectExpert,
		StrategyProjectBased,
		StrategySkillDecomposition,
		StrategyNetworkExpansion,
		StrategySemanticSimilarity,
	}
}

// Strategy carries the running statistics for one search strategy.
type Strategy struct {
	Name        string    `json:"name"`
	SuccessRate float64   `json:"success_rate"`
	AvgQuality  float64   `json:"avg_quality"`
	UsageCount  int       `json:"usage_count"`
	LastUsed    time.Time `json:"last_used,omitempty"`
}

// QueryPattern records which strategy worked best for queries containing a
// phrase. Patterns only exist for successful searches.
type QueryPattern struct {
	Phrase       string  `json:"phrase"`
	BestStrategy string  `json:"best_strategy"`
	AvgQuality   float64 `json:"avg_quality"`
	Count        int     `json:"count"`
}

// LearningRecord is one search outcome. Satisfaction is nil until the user
// files feedback for the search.
type LearningRecord struct {
	Query        string    `json:"query"`
	Strategy     string    `json:"strategy"`
	Quality      float64   `json:"quality"`
	Satisfaction *float64  `json:"satisfaction,omitempty"`
	CandidateIDs []int64   `json:"candidate_ids,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// maxRecordCandidates caps the candidate ids kept per record.
const maxRecordCandidates = 10

// successQuality is the bar above which a search counts as successful.
const successQuality = 0.7

// minPhraseLen is the token length cutoff for pattern phrases.
const minPhraseLen = 4
