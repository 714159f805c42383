package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertscout/expertscout/internal/llm"
	"github.com/expertscout/expertscout/internal/store"
)

func newTestExecutor(t *testing.T, experts, projects []*store.Candidate) *Executor {
	t.Helper()
	src := newTestSource(t, experts, projects)
	return NewExecutor(src, NewNormalizedFusion(), llm.NewHeuristicReasoner(), nil)
}

func interpretation(query string, keywords ...string) Interpretation {
	return Interpretation{
		Kind:        string(llm.KindDirectExpert),
		Paraphrases: []string{query},
		Keywords:    keywords,
	}
}

func TestExecutor_DirectExpert(t *testing.T) {
	// Given the fixture corpus
	ex := newTestExecutor(t, testExperts(), nil)

	got, err := ex.Execute(context.Background(), string(llm.KindDirectExpert),
		interpretation("supply chain expert", "supply", "chain"))

	// Then the supply chain director ranks first
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "Alex Rivera", got[0].Candidate.Name)
	// Normalized fusion keeps scores in [0,1]
	for _, c := range got {
		assert.LessOrEqual(t, c.FusedScore, 1.0)
	}
}

func TestExecutor_SkillDecomposition(t *testing.T) {
	// Given a query decomposed into two skills
	ex := newTestExecutor(t, testExperts(), nil)

	got, err := ex.Execute(context.Background(), string(llm.KindSkillDecomposition),
		interpretation("supply chain and renewable energy", "logistics", "renewable"))

	// Then experts from both skill searches appear, deduplicated
	require.NoError(t, err)
	names := candidateNames(got)
	assert.Contains(t, names, "Priya Shah")
	assert.Contains(t, names, "Chen Wei")
	seen := make(map[string]int)
	for _, c := range got {
		seen[c.Key()]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "candidate %s duplicated", key)
	}
}

func TestExecutor_SkillDecompositionNoKeywordsFallsBack(t *testing.T) {
	ex := newTestExecutor(t, testExperts(), nil)

	got, err := ex.Execute(context.Background(), string(llm.KindSkillDecomposition),
		interpretation("supply chain expert"))

	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestExecutor_NetworkExpansion(t *testing.T) {
	// Given a seed query whose top result carries functions to expand
	ex := newTestExecutor(t, testExperts(), nil)

	got, err := ex.Execute(context.Background(), string(llm.KindNetworkExpansion),
		interpretation("supply chain expert"))

	// Then the seed expert is present and expansion pulled in the
	// logistics specialist through the shared function
	require.NoError(t, err)
	names := candidateNames(got)
	assert.Contains(t, names, "Alex Rivera")
	assert.Contains(t, names, "Priya Shah")
}

func TestExecutor_SemanticSimilarity(t *testing.T) {
	ex := newTestExecutor(t, testExperts(), nil)

	got, err := ex.Execute(context.Background(), string(llm.KindSemanticSimilarity),
		interpretation("solar and wind energy policy"))

	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "Chen Wei", got[0].Candidate.Name)
}

func TestExecutor_ProjectBasedHarvestsAgendaExperts(t *testing.T) {
	// Given a project whose agenda references experts 1 and 2
	ex := newTestExecutor(t, testExperts(), testProjects())

	got, err := ex.Execute(context.Background(), string(llm.KindProjectBased),
		interpretation("warehouse automation project in Vietnam"))

	// Then both referenced experts are returned at the harvested score
	require.NoError(t, err)
	names := candidateNames(got)
	assert.Contains(t, names, "Alex Rivera")
	assert.Contains(t, names, "Priya Shah")
	for _, c := range got {
		if c.Candidate.ID == 1 || c.Candidate.ID == 2 {
			assert.Equal(t, harvestedScore, c.FusedScore)
		}
	}
}

func TestExecutor_ProjectBasedWithoutProjectIndex(t *testing.T) {
	// Given no project collection, the strategy degrades to direct search
	ex := newTestExecutor(t, testExperts(), nil)

	got, err := ex.Execute(context.Background(), string(llm.KindProjectBased),
		interpretation("warehouse automation project"))

	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestExecutor_UnknownStrategyFallsBack(t *testing.T) {
	ex := newTestExecutor(t, testExperts(), nil)

	got, err := ex.Execute(context.Background(), "made_up_strategy",
		interpretation("supply chain expert"))

	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func candidateNames(cands []*ScoredCandidate) []string {
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.Candidate.Name
	}
	return names
}
