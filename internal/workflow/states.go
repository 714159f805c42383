// Package workflow drives a search run through a fixed state machine:
// strategy selection, interpretation, retrieval, fusion and reranking,
// quality scoring, suggestion generation, learning, and the decision to
// continue with another strategy or stop.
package workflow

import (
	"strings"

	scouterr "github.com/expertscout/expertscout/internal/errors"
	"github.com/expertscout/expertscout/internal/search"
)

// State names one node of the search state machine.
type State string

const (
	StateInitialize          State = "initialize"
	StateSelectStrategy      State = "select_strategy"
	StateInterpretQuery      State = "interpret_query"
	StateRetrieve            State = "retrieve"
	StateFuseAndRerank       State = "fuse_and_rerank"
	StateScoreQuality        State = "score_quality"
	StateGenerateSuggestions State = "generate_suggestions"
	StateLearn               State = "learn"
	StateDecide              State = "decide"
	StateDone                State = "done"
)

// Decisions written into the Decide trace and read back by the branch.
const (
	DecisionContinue = "continue"
	DecisionComplete = "complete"
)

// validTransition is the static edge set of the machine. The only branch is
// out of Decide: back to SelectStrategy for another iteration, or Done.
func validTransition(from, to State) bool {
	switch from {
	case StateInitialize:
		return to == StateSelectStrategy
	case StateSelectStrategy:
		return to == StateInterpretQuery
	case StateInterpretQuery:
		return to == StateRetrieve
	case StateRetrieve:
		return to == StateFuseAndRerank
	case StateFuseAndRerank:
		return to == StateScoreQuality
	case StateScoreQuality:
		return to == StateGenerateSuggestions
	case StateGenerateSuggestions:
		return to == StateLearn
	case StateLearn:
		return to == StateDecide
	case StateDecide:
		return to == StateSelectStrategy || to == StateDone
	default:
		return false
	}
}

// runState is the mutable state owned by one run. Nothing here is shared;
// the learner is the only shared mutable resource a run touches.
type runState struct {
	query      string
	iteration  int
	tried      []string
	strategy   string
	confidence float64

	interp     *search.Interpretation
	candidates []*search.ScoredCandidate
	quality    float64

	suggestions  []string
	alternatives []string
	traces       []string
	learnReached bool
}

func (rs *runState) trace(note string) {
	rs.traces = append(rs.traces, note)
}

// decisionTracePrefix tags the Decide trace so the branch can read the
// decision back out of it.
const decisionTracePrefix = "decision: "

// lastDecision parses the decision tag out of the most recent trace. The
// Decide state must have written it; anything else is a broken machine.
func (rs *runState) lastDecision() (string, error) {
	if len(rs.traces) == 0 {
		return "", scouterr.New(scouterr.ErrCodeWorkflowInvalid,
			"decide state left no trace", nil)
	}
	last := rs.traces[len(rs.traces)-1]
	if !strings.HasPrefix(last, decisionTracePrefix) {
		return "", scouterr.New(scouterr.ErrCodeWorkflowInvalid,
			"last trace is not a decision: "+last, nil)
	}
	rest := strings.TrimPrefix(last, decisionTracePrefix)
	switch {
	case strings.HasPrefix(rest, DecisionContinue):
		return DecisionContinue, nil
	case strings.HasPrefix(rest, DecisionComplete):
		return DecisionComplete, nil
	}
	return "", scouterr.New(scouterr.ErrCodeWorkflowInvalid,
		"unknown decision tag: "+rest, nil)
}
