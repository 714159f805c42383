package search

// DefaultRelevanceThreshold is the fused-score bar above which a candidate
// counts as relevant for quality scoring.
const DefaultRelevanceThreshold = 0.7

// minExperienceYears is the seniority bar for the experience component.
const minExperienceYears = 5

// QualityScorer grades a result set on a [0,1] scale from five weighted
// heuristics. The score drives the decision to keep searching or stop, so it
// must be cheap and deterministic.
type QualityScorer struct {
	// RelevanceThreshold gates the relevance component. Zero value means
	// DefaultRelevanceThreshold.
	RelevanceThreshold float64
}

// NewQualityScorer returns a scorer with the default relevance threshold.
func NewQualityScorer() *QualityScorer {
	return &QualityScorer{RelevanceThreshold: DefaultRelevanceThreshold}
}

// Score computes the weighted quality of a result set:
//
//	0.20  any results at all
//	0.20  volume, n/10 capped at 1
//	0.30  fraction of candidates with fused score above the threshold
//	0.15  diversity, distinct primary functions / n
//	0.15  fraction of candidates with more than five years of experience
//
// An empty set scores exactly 0.
func (q *QualityScorer) Score(cands []*ScoredCandidate) float64 {
	n := len(cands)
	if n == 0 {
		return 0.0
	}

	threshold := q.RelevanceThreshold
	if threshold <= 0 {
		threshold = DefaultRelevanceThreshold
	}

	volume := float64(n) / 10.0
	if volume > 1.0 {
		volume = 1.0
	}

	relevant := 0
	senior := 0
	functions := make(map[string]bool, n)
	for _, c := range cands {
		if c.FusedScore > threshold {
			relevant++
		}
		if c.Candidate.YearsExperience > minExperienceYears {
			senior++
		}
		functions[c.Candidate.PrimaryFunction()] = true
	}

	score := 0.20 +
		0.20*volume +
		0.30*(float64(relevant)/float64(n)) +
		0.15*(float64(len(functions))/float64(n)) +
		0.15*(float64(senior)/float64(n))

	if score > 1.0 {
		score = 1.0
	}
	return score
}
