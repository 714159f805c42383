package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertscout/expertscout/internal/embed"
	scouterr "github.com/expertscout/expertscout/internal/errors"
	"github.com/expertscout/expertscout/internal/learning"
	"github.com/expertscout/expertscout/internal/llm"
	"github.com/expertscout/expertscout/internal/search"
	"github.com/expertscout/expertscout/internal/store"
	"github.com/expertscout/expertscout/internal/telemetry"
)

const testDims = 64

func fixtureExperts() []*store.Candidate {
	return []*store.Candidate{
		{
			Collection:      store.CollectionExperts,
			ID:              1,
			Name:            "Alex Rivera",
			Headline:        "Supply chain director",
			Bio:             "Led supply chain transformation across Southeast Asia for a global logistics group.",
			Functions:       []string{"Supply Chain"},
			YearsExperience: 12,
		},
		{
			Collection:      store.CollectionExperts,
			ID:              2,
			Name:            "Priya Shah",
			Headline:        "Logistics operations lead",
			Bio:             "Warehouse automation and last-mile logistics operations.",
			Functions:       []string{"Logistics"},
			YearsExperience: 8,
		},
		{
			Collection:      store.CollectionExperts,
			ID:              3,
			Name:            "Chen Wei",
			Headline:        "Renewable energy advisor",
			Bio:             "Solar and wind project development, grid integration policy.",
			Functions:       []string{"Energy"},
			YearsExperience: 15,
		},
	}
}

// newTestOrchestrator builds a fully offline pipeline over the given
// corpus. An empty corpus makes every iteration score zero.
func newTestOrchestrator(t *testing.T, experts []*store.Candidate) (*Orchestrator, *learning.Learner, *telemetry.Collector) {
	t.Helper()
	return newTestOrchestratorWith(t, experts, llm.NewHeuristicReasoner())
}

func newTestOrchestratorWith(t *testing.T, experts []*store.Candidate, reasoner llm.Reasoner) (*Orchestrator, *learning.Learner, *telemetry.Collector) {
	t.Helper()
	ctx := context.Background()
	embedder := embed.NewStaticEmbedder(testDims)

	kw, err := store.NewKeywordIndex("", store.CollectionExperts)
	require.NoError(t, err)
	t.Cleanup(func() { kw.Close() })
	vs, err := store.NewVectorStore(store.DefaultVectorStoreConfig(testDims))
	require.NoError(t, err)
	docs, err := store.NewDocStore("")
	require.NoError(t, err)
	t.Cleanup(func() { docs.Close() })

	if len(experts) > 0 {
		indexDocs := make([]store.IndexDoc, len(experts))
		ids := make([]int64, len(experts))
		vectors := make([][]float32, len(experts))
		for i, c := range experts {
			indexDocs[i] = store.IndexDoc{ID: c.ID, Text: c.SearchText()}
			ids[i] = c.ID
			vec, err := embedder.Embed(ctx, c.SearchText())
			require.NoError(t, err)
			vectors[i] = vec
		}
		require.NoError(t, kw.Index(ctx, indexDocs))
		require.NoError(t, vs.Add(ctx, ids, vectors))
		require.NoError(t, docs.Put(ctx, experts))
	}

	channels := map[store.Collection]*search.Channels{
		store.CollectionExperts: {Keyword: kw, Vector: vs},
	}
	source := search.NewSource(channels, docs, embedder, nil)

	learner, err := learning.NewLearner(ctx, learning.NewMemStore(), learning.Options{})
	require.NoError(t, err)
	collector := telemetry.NewCollector(100)

	o := NewOrchestrator(
		search.NewInterpreter(reasoner, nil),
		search.NewExecutor(source, search.NewNormalizedFusion(), reasoner, nil),
		search.NewReranker(reasoner),
		search.NewQualityScorer(),
		learner,
		collector,
		nil,
	)
	return o, learner, collector
}

func TestOrchestrator_EmptyQueryRejected(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	_, err := o.Run(context.Background(), "   ")

	require.Error(t, err)
	assert.Equal(t, scouterr.ErrCodeQueryEmpty, scouterr.GetCode(err))
}

func TestOrchestrator_IterationLimitOnZeroQuality(t *testing.T) {
	// Given an empty corpus, every iteration scores exactly zero
	o, learner, _ := newTestOrchestrator(t, nil)
	o.MaxIterations = 3

	res, err := o.Run(context.Background(), "supply chain expert")

	// Then the run stops at the limit, not before or after
	require.NoError(t, err)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, DecisionComplete, res.Decision)
	assert.Equal(t, 0.0, res.Quality)
	assert.Len(t, res.Strategies, 3)

	// Each state appended exactly one trace per pass
	assert.Len(t, res.Traces, 1+8*3)

	// Every iteration was learned from
	total := 0
	for _, st := range learner.Strategies() {
		total += st.UsageCount
	}
	assert.Equal(t, 3, total)
}

// countingReasoner counts classification calls on top of the heuristic model.
type countingReasoner struct {
	llm.Reasoner
	classified int
}

func (r *countingReasoner) Classify(ctx context.Context, query string) (llm.QueryKind, string, error) {
	r.classified++
	return r.Reasoner.Classify(ctx, query)
}

func TestOrchestrator_ReinterpretsEachIteration(t *testing.T) {
	// Given an empty corpus, every iteration scores zero and retries
	// under a different strategy
	reasoner := &countingReasoner{Reasoner: llm.NewHeuristicReasoner()}
	o, _, _ := newTestOrchestratorWith(t, nil, reasoner)
	o.MaxIterations = 3

	res, err := o.Run(context.Background(), "supply chain expert")

	// Then the query was interpreted afresh for each strategy
	require.NoError(t, err)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 3, reasoner.classified)
}

func TestOrchestrator_StrategiesNeverRepeatWithinRun(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)
	o.MaxIterations = 10

	res, err := o.Run(context.Background(), "nothing will match this")

	// All five strategies are tried once each, then the run completes
	require.NoError(t, err)
	assert.Equal(t, DecisionComplete, res.Decision)
	require.Len(t, res.Strategies, 5)
	seen := make(map[string]bool)
	for _, s := range res.Strategies {
		assert.False(t, seen[s], "strategy %s repeated", s)
		seen[s] = true
	}
	assert.Contains(t, res.Traces[len(res.Traces)-1], "all 5 strategies tried")
}

func TestOrchestrator_OfflineEndToEnd(t *testing.T) {
	// Given an indexed corpus and the fully offline pipeline
	o, _, collector := newTestOrchestrator(t, fixtureExperts())

	res, err := o.Run(context.Background(), "supply chain expert in Southeast Asia")

	// Then the run completes with candidates and a full trace
	require.NoError(t, err)
	assert.Equal(t, DecisionComplete, res.Decision)
	require.NotEmpty(t, res.Candidates)
	assert.LessOrEqual(t, len(res.Candidates), DefaultKeepTop)
	assert.Greater(t, res.Quality, 0.0)
	assert.NotEmpty(t, res.Traces)
	assert.LessOrEqual(t, res.Iterations, DefaultMaxIterations)

	// The supply chain expert is in the result set
	found := false
	for _, c := range res.Candidates {
		if c.Candidate.Name == "Alex Rivera" {
			found = true
		}
	}
	assert.True(t, found)

	// Telemetry saw one event per iteration
	assert.Equal(t, res.Iterations, collector.Size())
}

func TestOrchestrator_SuggestionsForWeakResults(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)
	o.MaxIterations = 1

	res, err := o.Run(context.Background(), "completely unmatched query")

	require.NoError(t, err)
	assert.Contains(t, res.Suggestions, "Try breaking down your query into specific skills")
	assert.Contains(t, res.Suggestions, "Broaden your search terms")
}

func TestOrchestrator_AlternativesFromLearnedHistory(t *testing.T) {
	// Given a learner with a successful prior search
	o, learner, _ := newTestOrchestrator(t, fixtureExperts())
	learner.RecordOutcome(context.Background(), learning.LearningRecord{
		Query:    "renewable energy grid specialist",
		Strategy: learning.StrategyDirectExpert,
		Quality:  0.9,
	})
	o.MaxIterations = 1

	res, err := o.Run(context.Background(), "logistics advisor")

	require.NoError(t, err)
	require.NotEmpty(t, res.Alternatives)
	assert.LessOrEqual(t, len(res.Alternatives), maxAlternatives)
	assert.NotContains(t, res.Alternatives, "logistics advisor")
	// Pattern phrases from the successful search extend the query
	joined := strings.Join(res.Alternatives, " | ")
	assert.Contains(t, joined, "logistics advisor ")
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateInitialize, StateSelectStrategy, true},
		{StateSelectStrategy, StateInterpretQuery, true},
		{StateInterpretQuery, StateRetrieve, true},
		{StateRetrieve, StateFuseAndRerank, true},
		{StateFuseAndRerank, StateScoreQuality, true},
		{StateScoreQuality, StateGenerateSuggestions, true},
		{StateGenerateSuggestions, StateLearn, true},
		{StateLearn, StateDecide, true},
		{StateDecide, StateSelectStrategy, true},
		{StateDecide, StateDone, true},
		{StateInitialize, StateRetrieve, false},
		{StateRetrieve, StateSelectStrategy, false},
		{StateDone, StateInitialize, false},
		{StateLearn, StateDone, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, validTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestDecisionTraceReadBack(t *testing.T) {
	rs := &runState{}

	// No trace at all is a broken machine
	_, err := rs.lastDecision()
	require.Error(t, err)
	assert.Equal(t, scouterr.ErrCodeWorkflowInvalid, scouterr.GetCode(err))

	// A non-decision trace is too
	rs.trace("retrieved 3 candidates")
	_, err = rs.lastDecision()
	require.Error(t, err)

	// The decide trace carries the tag
	rs.trace(decisionTracePrefix + DecisionContinue + ": quality 0.300 below target 0.80")
	got, err := rs.lastDecision()
	require.NoError(t, err)
	assert.Equal(t, DecisionContinue, got)
}
