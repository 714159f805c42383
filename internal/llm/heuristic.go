package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Token budget for heuristic keyword extraction.
const maxHeuristicKeywords = 10

// projectTokens flag queries about staffing a project rather than
// naming an expertise directly.
var projectTokens = []string{
	"project", "agenda", "initiative", "implementing", "building",
	"launch", "rollout",
}

// stopWords are dropped during heuristic keyword extraction.
var stopWords = map[string]struct{}{
	"i": {}, "a": {}, "an": {}, "the": {}, "in": {}, "on": {}, "of": {},
	"for": {}, "and": {}, "or": {}, "to": {}, "with": {}, "who": {},
	"need": {}, "want": {}, "find": {}, "search": {}, "looking": {},
	"someone": {}, "expert": {}, "experts": {}, "experience": {},
	"years": {}, "year": {}, "is": {}, "are": {}, "has": {}, "have": {},
	"about": {}, "that": {}, "this": {}, "can": {}, "help": {}, "me": {},
	"please": {}, "specialist": {}, "consultant": {},
}

var tokenSplitRE = regexp.MustCompile(`[^\w-]+`)

// HeuristicReasoner is the deterministic fallback used when the remote
// reasoning service is disabled or unavailable. Every method succeeds.
type HeuristicReasoner struct{}

// NewHeuristicReasoner returns the deterministic reasoner.
func NewHeuristicReasoner() *HeuristicReasoner {
	return &HeuristicReasoner{}
}

// Generate echoes a short neutral completion; the heuristic reasoner
// has no generative capability.
func (h *HeuristicReasoner) Generate(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

// Classify scans for project-staffing vocabulary.
func (h *HeuristicReasoner) Classify(ctx context.Context, query string) (QueryKind, string, error) {
	lower := strings.ToLower(query)
	for _, token := range projectTokens {
		if strings.Contains(lower, token) {
			return KindProjectBased,
				fmt.Sprintf("pattern match on %q suggests a project search", token), nil
		}
	}
	return KindDirectExpert, "no project vocabulary found, treating as direct expert search", nil
}

// EnhanceQuery returns fixed paraphrase templates around the query.
func (h *HeuristicReasoner) EnhanceQuery(ctx context.Context, query string, n int) ([]string, string, error) {
	variants := []string{
		query,
		"experienced " + query,
		"senior " + query + " specialist",
	}
	if n < len(variants) {
		variants = variants[:n]
	}
	return variants, "template paraphrases (reasoning service not used)", nil
}

// ExtractKeywords tokenizes, lowercases, and filters stop words.
func (h *HeuristicReasoner) ExtractKeywords(ctx context.Context, query string) ([]string, string, error) {
	keywords := HeuristicKeywords(query)
	return keywords, "stop-word filtered tokens (reasoning service not used)", nil
}

// RankOrder declines to reorder; callers fall back to occurrence scoring.
func (h *HeuristicReasoner) RankOrder(ctx context.Context, query string, summaries []string) ([]int, string, error) {
	return nil, "no reasoning service, keeping keyword-based order", nil
}

// ExpertProfile echoes a trimmed version of the project description.
func (h *HeuristicReasoner) ExpertProfile(ctx context.Context, projectDescription string) (string, error) {
	desc := strings.TrimSpace(projectDescription)
	if len(desc) > 200 {
		desc = desc[:200]
	}
	return "expert with hands-on experience in: " + desc, nil
}

// Available always reports true; the heuristics have no dependency.
func (h *HeuristicReasoner) Available(ctx context.Context) bool {
	return true
}

// HeuristicKeywords is the shared stop-word tokenizer, exported so the
// reranker can score candidates by keyword occurrence.
func HeuristicKeywords(query string) []string {
	tokens := tokenSplitRE.Split(strings.ToLower(query), -1)
	keywords := make([]string, 0, len(tokens))
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
		if len(keywords) == maxHeuristicKeywords {
			break
		}
	}
	return keywords
}

var _ Reasoner = (*HeuristicReasoner)(nil)
