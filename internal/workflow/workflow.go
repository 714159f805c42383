package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	scouterr "github.com/expertscout/expertscout/internal/errors"
	"github.com/expertscout/expertscout/internal/learning"
	"github.com/expertscout/expertscout/internal/search"
	"github.com/expertscout/expertscout/internal/telemetry"
)

// Defaults for run termination and result shaping.
const (
	DefaultTargetQuality = 0.8
	DefaultMaxIterations = 10
	DefaultKeepTop       = 20

	// maxStrategies is how many distinct strategies exist; trying them
	// all ends the run.
	maxStrategies = 5

	// Suggestion thresholds.
	lowQuality         = 0.5
	fewResults         = 5
	maxAlternatives    = 5
	alternativePattern = 0.7
)

// SearchResult is the outcome of one complete run.
type SearchResult struct {
	Query        string                    `json:"query"`
	Candidates   []*search.ScoredCandidate `json:"candidates"`
	Quality      float64                   `json:"quality"`
	Iterations   int                       `json:"iterations"`
	Strategies   []string                  `json:"strategies"`
	Decision     string                    `json:"decision"`
	Suggestions  []string                  `json:"suggestions,omitempty"`
	Alternatives []string                  `json:"alternatives,omitempty"`
	Traces       []string                  `json:"traces"`
	Elapsed      time.Duration             `json:"elapsed"`
}

// Orchestrator runs searches through the state machine. Safe for reuse
// across runs; each run owns its own state.
type Orchestrator struct {
	interpreter *search.Interpreter
	executor    *search.Executor
	reranker    *search.Reranker
	scorer      *search.QualityScorer
	learner     *learning.Learner
	collector   *telemetry.Collector
	logger      *slog.Logger

	TargetQuality float64
	MaxIterations int
	KeepTop       int
}

// NewOrchestrator wires the pipeline components. The collector may be nil
// when telemetry is off.
func NewOrchestrator(
	interpreter *search.Interpreter,
	executor *search.Executor,
	reranker *search.Reranker,
	scorer *search.QualityScorer,
	learner *learning.Learner,
	collector *telemetry.Collector,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		interpreter:   interpreter,
		executor:      executor,
		reranker:      reranker,
		scorer:        scorer,
		learner:       learner,
		collector:     collector,
		logger:        logger,
		TargetQuality: DefaultTargetQuality,
		MaxIterations: DefaultMaxIterations,
		KeepTop:       DefaultKeepTop,
	}
}

// Run executes the state machine for one query. It returns the best result
// set found across iterations; an error is returned only for invalid input
// or a broken machine, with the partial trace attached.
func (o *Orchestrator) Run(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, scouterr.New(scouterr.ErrCodeQueryEmpty, "search query is empty", nil)
	}

	start := time.Now()
	rs := &runState{query: query, iteration: 1}
	state := StateInitialize

	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return o.result(rs, start), err
		}
		next, err := o.step(ctx, rs, state)
		if err != nil {
			res := o.result(rs, start)
			return res, err
		}
		if !validTransition(state, next) {
			res := o.result(rs, start)
			werr := scouterr.New(scouterr.ErrCodeWorkflowInvalid,
				fmt.Sprintf("undefined transition %s -> %s", state, next), nil).
				WithDetail("traces", strings.Join(rs.traces, "; "))
			return res, werr
		}
		state = next
	}

	return o.result(rs, start), nil
}

// step executes one state and names the next. Every state appends exactly
// one trace.
func (o *Orchestrator) step(ctx context.Context, rs *runState, state State) (State, error) {
	switch state {
	case StateInitialize:
		rs.trace(fmt.Sprintf("searching for: %q (target quality %.2f)", rs.query, o.TargetQuality))
		return StateSelectStrategy, nil

	case StateSelectStrategy:
		name, confidence := o.learner.SelectStrategy(rs.query, rs.tried)
		rs.strategy = name
		rs.confidence = confidence
		if !contains(rs.tried, name) {
			rs.tried = append(rs.tried, name)
		}
		rs.trace(fmt.Sprintf("iteration %d: strategy %s (confidence %.2f)", rs.iteration, name, confidence))
		return StateInterpretQuery, nil

	case StateInterpretQuery:
		// Interpreted fresh each iteration: with a live reasoner a retry
		// under a new strategy gets new paraphrases.
		interp := o.interpreter.Interpret(ctx, rs.query)
		rs.interp = &interp
		rs.trace(fmt.Sprintf("interpreted as %s with %d paraphrases, %d keywords",
			interp.Kind, len(interp.Paraphrases), len(interp.Keywords)))
		return StateRetrieve, nil

	case StateRetrieve:
		retrieveStart := time.Now()
		cands, err := o.executor.Execute(ctx, rs.strategy, *rs.interp)
		if err != nil {
			// A failed strategy is an empty iteration, not a dead run.
			o.logger.Warn("retrieval failed",
				slog.String("strategy", rs.strategy),
				slog.String("error", err.Error()))
			cands = nil
		}
		rs.candidates = cands
		if o.collector != nil {
			o.collector.Record(telemetry.QueryEvent{
				Query:       rs.query,
				Strategy:    rs.strategy,
				ResultCount: len(cands),
				Latency:     time.Since(retrieveStart),
			})
		}
		rs.trace(fmt.Sprintf("retrieved %d candidates via %s", len(cands), rs.strategy))
		return StateFuseAndRerank, nil

	case StateFuseAndRerank:
		reranked, note := o.reranker.Rerank(ctx, rs.query, rs.candidates)
		if len(reranked) > o.KeepTop {
			reranked = reranked[:o.KeepTop]
		}
		rs.candidates = reranked
		rs.trace(note)
		return StateScoreQuality, nil

	case StateScoreQuality:
		rs.quality = o.scorer.Score(rs.candidates)
		rs.trace(fmt.Sprintf("quality %.3f over %d candidates", rs.quality, len(rs.candidates)))
		return StateGenerateSuggestions, nil

	case StateGenerateSuggestions:
		rs.suggestions = o.suggestions(rs)
		rs.alternatives = o.alternatives(rs.query)
		rs.trace(fmt.Sprintf("%d suggestions, %d alternative queries",
			len(rs.suggestions), len(rs.alternatives)))
		return StateLearn, nil

	case StateLearn:
		ids := make([]int64, 0, len(rs.candidates))
		for _, c := range rs.candidates {
			ids = append(ids, c.Candidate.ID)
		}
		o.learner.RecordOutcome(ctx, learning.LearningRecord{
			Query:        rs.query,
			Strategy:     rs.strategy,
			Quality:      rs.quality,
			CandidateIDs: ids,
		})
		rs.learnReached = true
		rs.trace(fmt.Sprintf("recorded outcome for %s", rs.strategy))
		return StateDecide, nil

	case StateDecide:
		rs.trace(o.decide(rs))
		decision, err := rs.lastDecision()
		if err != nil {
			return StateDone, err
		}
		if decision == DecisionContinue {
			rs.iteration++
			return StateSelectStrategy, nil
		}
		return StateDone, nil

	default:
		return StateDone, scouterr.New(scouterr.ErrCodeWorkflowInvalid,
			"unknown state "+string(state), nil)
	}
}

// decide applies the termination checks in fixed order and returns the
// Decide trace carrying the decision tag.
func (o *Orchestrator) decide(rs *runState) string {
	switch {
	case rs.quality >= o.TargetQuality:
		return fmt.Sprintf("%s%s: quality %.3f reached target %.2f",
			decisionTracePrefix, DecisionComplete, rs.quality, o.TargetQuality)
	case rs.iteration >= o.MaxIterations:
		return fmt.Sprintf("%s%s: iteration limit %d reached",
			decisionTracePrefix, DecisionComplete, o.MaxIterations)
	case len(rs.tried) >= maxStrategies:
		return fmt.Sprintf("%s%s: all %d strategies tried",
			decisionTracePrefix, DecisionComplete, maxStrategies)
	default:
		return fmt.Sprintf("%s%s: quality %.3f below target %.2f",
			decisionTracePrefix, DecisionContinue, rs.quality, o.TargetQuality)
	}
}

// suggestions proposes query refinements based on the current results and
// similar successful searches.
func (o *Orchestrator) suggestions(rs *runState) []string {
	var out []string
	if rs.quality < lowQuality {
		out = append(out,
			"Try breaking down your query into specific skills",
			"Consider searching for related project types")
	}
	if len(rs.candidates) < fewResults {
		out = append(out,
			"Broaden your search terms",
			"Try removing specific requirements")
	}

	words := strings.Fields(strings.ToLower(rs.query))
	for _, rec := range o.learner.RecentSuccessful(10) {
		if rec.Query == rs.query {
			continue
		}
		lower := strings.ToLower(rec.Query)
		for _, w := range words {
			if strings.Contains(lower, w) {
				out = append(out, fmt.Sprintf("Similar successful search: %q", rec.Query))
				return out
			}
		}
	}
	return out
}

// alternatives builds alternative queries from high-quality patterns and
// recent successful searches, excluding the original, capped at five.
func (o *Orchestrator) alternatives(query string) []string {
	lower := strings.ToLower(query)
	var out []string

	for _, p := range o.learner.SuccessfulPatterns(alternativePattern) {
		if len(out) >= maxAlternatives {
			return out
		}
		if !strings.Contains(lower, p.Phrase) {
			out = append(out, query+" "+p.Phrase)
		}
	}
	for _, rec := range o.learner.RecentSuccessful(5) {
		if len(out) >= maxAlternatives {
			return out
		}
		if rec.Query != query && !contains(out, rec.Query) {
			out = append(out, rec.Query)
		}
	}
	return out
}

func (o *Orchestrator) result(rs *runState, start time.Time) *SearchResult {
	decision := ""
	if d, err := rs.lastDecision(); err == nil {
		decision = d
	}
	return &SearchResult{
		Query:        rs.query,
		Candidates:   rs.candidates,
		Quality:      rs.quality,
		Iterations:   rs.iteration,
		Strategies:   rs.tried,
		Decision:     decision,
		Suggestions:  rs.suggestions,
		Alternatives: rs.alternatives,
		Traces:       rs.traces,
		Elapsed:      time.Since(start),
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
