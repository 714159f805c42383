package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/expertscout/expertscout/internal/llm"
)

// maxParaphrases bounds the enhanced variants added to the original query.
const maxParaphrases = 3

// Interpreter turns a raw query into a structured Interpretation using the
// reasoning model, degrading to heuristics per step rather than failing: a
// search should always run even when the model is down.
type Interpreter struct {
	reasoner llm.Reasoner
	logger   *slog.Logger
}

// NewInterpreter wires an interpreter to a reasoning model.
func NewInterpreter(reasoner llm.Reasoner, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{reasoner: reasoner, logger: logger}
}

// Interpret classifies the query, generates paraphrases, and extracts search
// keywords. Each step records a trace note; steps that fall back to
// heuristics say so in the trace. The original query is always the first
// paraphrase.
func (ip *Interpreter) Interpret(ctx context.Context, query string) Interpretation {
	query = strings.TrimSpace(query)
	out := Interpretation{
		Kind:        string(llm.KindDirectExpert),
		Paraphrases: []string{query},
	}

	kind, rationale, err := ip.reasoner.Classify(ctx, query)
	if err != nil {
		out.Trace = append(out.Trace, "classification failed, assuming direct expert lookup")
		ip.logger.Warn("query classification failed", slog.String("error", err.Error()))
	} else {
		out.Kind = string(kind)
		out.Trace = append(out.Trace, fmt.Sprintf("classified as %s: %s", kind, rationale))
	}

	variants, rationale, err := ip.reasoner.EnhanceQuery(ctx, query, maxParaphrases)
	if err != nil {
		out.Trace = append(out.Trace, "query enhancement failed, searching with original only")
		ip.logger.Warn("query enhancement failed", slog.String("error", err.Error()))
	} else {
		for _, v := range variants {
			v = strings.TrimSpace(v)
			if v != "" && !containsFold(out.Paraphrases, v) {
				out.Paraphrases = append(out.Paraphrases, v)
			}
			if len(out.Paraphrases) >= 1+maxParaphrases {
				break
			}
		}
		out.Trace = append(out.Trace, fmt.Sprintf("generated %d paraphrases: %s", len(out.Paraphrases)-1, rationale))
	}

	keywords, rationale, err := ip.reasoner.ExtractKeywords(ctx, query)
	if err != nil || len(keywords) == 0 {
		keywords = llm.HeuristicKeywords(query)
		out.Trace = append(out.Trace, "keyword extraction degraded to heuristics")
	} else {
		out.Trace = append(out.Trace, fmt.Sprintf("extracted %d keywords: %s", len(keywords), rationale))
	}
	out.Keywords = keywords

	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
