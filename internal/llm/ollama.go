package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	scouterr "github.com/expertscout/expertscout/internal/errors"
)

// Default reasoner configuration values.
const (
	DefaultModel     = "qwen2.5:3b"
	DefaultTimeout   = 120 * time.Second
	DefaultCacheSize = 1000
	DefaultHost      = "http://localhost:11434"

	maxEnhancements = 3
	maxKeywords     = 15
)

// Config holds configuration for the Ollama reasoner.
type Config struct {
	// Host is the Ollama API base URL.
	Host string
	// Model is the generation model name.
	Model string
	// Timeout bounds a single generation call.
	Timeout time.Duration
	// CacheSize is the LRU size for classification results.
	CacheSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:      DefaultHost,
		Model:     DefaultModel,
		Timeout:   DefaultTimeout,
		CacheSize: DefaultCacheSize,
	}
}

// generateRequest is the Ollama /api/generate request body.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the subset of the response we read.
type generateResponse struct {
	Response string `json:"response"`
}

type classification struct {
	kind      QueryKind
	rationale string
}

// OllamaReasoner talks to an Ollama-compatible generate endpoint. All
// reasoning methods degrade to the heuristic reasoner on any failure;
// a circuit breaker skips the network once the service looks down.
type OllamaReasoner struct {
	config   Config
	client   *http.Client
	fallback *HeuristicReasoner
	breaker  *scouterr.CircuitBreaker
	cache    *lru.Cache[string, classification]
}

// NewOllamaReasoner creates a reasoner against the configured host.
func NewOllamaReasoner(cfg Config) *OllamaReasoner {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}

	cache, _ := lru.New[string, classification](cfg.CacheSize)
	return &OllamaReasoner{
		config:   cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		fallback: NewHeuristicReasoner(),
		breaker:  scouterr.NewCircuitBreaker("reasoner"),
		cache:    cache,
	}
}

// Generate runs a raw prompt through /api/generate.
func (o *OllamaReasoner) Generate(ctx context.Context, prompt string) (string, error) {
	if !o.breaker.Allow() {
		return "", scouterr.New(scouterr.ErrCodeReasonerUnavailable,
			"reasoning service circuit open", scouterr.ErrCircuitOpen)
	}

	reply, err := o.generate(ctx, prompt)
	if err != nil {
		o.breaker.RecordFailure()
		return "", err
	}
	o.breaker.RecordSuccess()
	return reply, nil
}

func (o *OllamaReasoner) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  o.config.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", scouterr.InternalError("marshaling generate request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.config.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", scouterr.InternalError("building generate request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", scouterr.New(scouterr.ErrCodeReasonerTimeout,
			"reasoning service request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", scouterr.New(scouterr.ErrCodeReasonerUnavailable,
			fmt.Sprintf("reasoning service returned HTTP %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", scouterr.New(scouterr.ErrCodeReasonerUnavailable,
			"reading reasoning service response", err)
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return "", scouterr.New(scouterr.ErrCodeReasonerUnavailable,
			"decoding reasoning service response", err)
	}
	return gr.Response, nil
}

// Classify tags the query, caching results by normalized text.
func (o *OllamaReasoner) Classify(ctx context.Context, query string) (QueryKind, string, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if cached, ok := o.cache.Get(key); ok {
		return cached.kind, cached.rationale, nil
	}

	reply, err := o.Generate(ctx, fmt.Sprintf(classifyPromptTmpl, query))
	if err == nil {
		if kind, ok := parseKind(reply); ok {
			rationale := "reasoning service classified the query as " + string(kind)
			o.cache.Add(key, classification{kind: kind, rationale: rationale})
			return kind, rationale, nil
		}
	}

	kind, rationale, _ := o.fallback.Classify(ctx, query)
	return kind, rationale + " (reasoning service unavailable)", nil
}

// EnhanceQuery asks for paraphrases, one per line.
func (o *OllamaReasoner) EnhanceQuery(ctx context.Context, query string, n int) ([]string, string, error) {
	if n <= 0 || n > maxEnhancements {
		n = maxEnhancements
	}

	reply, err := o.Generate(ctx, fmt.Sprintf(enhancePromptTmpl, n, query))
	if err == nil {
		if lines := parseLines(reply, n); len(lines) > 0 {
			return lines, "reasoning service paraphrased the query", nil
		}
	}

	variants, rationale, _ := o.fallback.EnhanceQuery(ctx, query, n)
	return variants, rationale, nil
}

// ExtractKeywords asks for a comma-separated keyword list.
func (o *OllamaReasoner) ExtractKeywords(ctx context.Context, query string) ([]string, string, error) {
	reply, err := o.Generate(ctx, fmt.Sprintf(keywordsPromptTmpl, query))
	if err == nil {
		if keywords := parseCommaList(reply, maxKeywords); len(keywords) > 0 {
			return keywords, "reasoning service extracted keywords", nil
		}
	}

	keywords, rationale, _ := o.fallback.ExtractKeywords(ctx, query)
	return keywords, rationale, nil
}

// RankOrder asks for a relevance permutation over candidate summaries.
func (o *OllamaReasoner) RankOrder(ctx context.Context, query string, summaries []string) ([]int, string, error) {
	if len(summaries) == 0 {
		return nil, "nothing to rank", nil
	}

	var sb strings.Builder
	for i, s := range summaries {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}

	reply, err := o.Generate(ctx, fmt.Sprintf(rankPromptTmpl, query, sb.String()))
	if err == nil {
		if order := ParsePermutation(reply, len(summaries)); order != nil {
			return order, "reasoning service ranked the candidates", nil
		}
	}

	return o.fallback.RankOrder(ctx, query, summaries)
}

// ExpertProfile describes the ideal expert for a project.
func (o *OllamaReasoner) ExpertProfile(ctx context.Context, projectDescription string) (string, error) {
	reply, err := o.Generate(ctx, fmt.Sprintf(profilePromptTmpl, projectDescription))
	if err == nil && strings.TrimSpace(reply) != "" {
		return strings.TrimSpace(reply), nil
	}
	return o.fallback.ExpertProfile(ctx, projectDescription)
}

// Available probes the tags endpoint with a short deadline.
func (o *OllamaReasoner) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet,
		o.config.Host+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

var _ Reasoner = (*OllamaReasoner)(nil)
