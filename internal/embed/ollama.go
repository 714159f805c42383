package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	scouterr "github.com/expertscout/expertscout/internal/errors"
)

// DefaultOllamaModel is the default embedding model.
const DefaultOllamaModel = "all-minilm"

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string
	// Model is the embedding model to use.
	Model string
	// Dimensions is the expected embedding width.
	Dimensions int
	// BatchSize for batch embedding requests.
	BatchSize int
	// Timeout for API requests.
	Timeout time.Duration
	// MaxRetries for transient failures.
	MaxRetries int
}

// DefaultOllamaConfig returns sensible defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:       "http://localhost:11434",
		Model:      DefaultOllamaModel,
		Dimensions: DefaultDimensions,
		BatchSize:  DefaultBatchSize,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

// embedRequest is the Ollama /api/embed request body.
type embedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"` // string or []string
}

// embedResponse is the subset of the response we read.
type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaEmbedder generates embeddings through an Ollama-compatible
// /api/embed endpoint.
type OllamaEmbedder struct {
	config OllamaConfig
	client *http.Client
}

// NewOllamaEmbedder creates an embedder against the configured host.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	def := DefaultOllamaConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = def.Dimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}

	return &OllamaEmbedder{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Embed generates an embedding for one text. Blank input returns the
// zero vector without touching the service.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return ZeroVector(e.config.Dimensions), nil
	}

	vectors, err := e.request(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, scouterr.New(scouterr.ErrCodeEmbeddingFailed,
			fmt.Sprintf("expected 1 embedding, got %d", len(vectors)), nil)
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts, batching requests.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := e.request(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, scouterr.New(scouterr.ErrCodeEmbeddingFailed,
				fmt.Sprintf("expected %d embeddings, got %d", end-start, len(vectors)), nil)
		}
		results = append(results, vectors...)
	}
	return results, nil
}

// request posts input to /api/embed with retries and converts the
// result to normalized float32 vectors.
func (e *OllamaEmbedder) request(ctx context.Context, input any) ([][]float32, error) {
	retryCfg := scouterr.RetryConfig{
		MaxRetries:   e.config.MaxRetries,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}

	return scouterr.RetryWithResult(ctx, retryCfg, func() ([][]float32, error) {
		body, err := json.Marshal(embedRequest{Model: e.config.Model, Input: input})
		if err != nil {
			return nil, scouterr.InternalError("marshaling embed request", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			e.config.Host+"/api/embed", bytes.NewReader(body))
		if err != nil {
			return nil, scouterr.InternalError("building embed request", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, scouterr.New(scouterr.ErrCodeEmbeddingFailed,
				"embedding service request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, scouterr.New(scouterr.ErrCodeEmbeddingFailed,
				fmt.Sprintf("embedding service returned HTTP %d", resp.StatusCode), nil)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
		if err != nil {
			return nil, scouterr.New(scouterr.ErrCodeEmbeddingFailed,
				"reading embedding response", err)
		}

		var er embedResponse
		if err := json.Unmarshal(data, &er); err != nil {
			return nil, scouterr.New(scouterr.ErrCodeEmbeddingFailed,
				"decoding embedding response", err)
		}

		vectors := make([][]float32, len(er.Embeddings))
		for i, emb := range er.Embeddings {
			if len(emb) != e.config.Dimensions {
				return nil, scouterr.New(scouterr.ErrCodeDimensionMismatch,
					fmt.Sprintf("embedding has %d dimensions, expected %d",
						len(emb), e.config.Dimensions), nil)
			}
			vec := make([]float32, len(emb))
			for j, v := range emb {
				vec[j] = float32(v)
			}
			vectors[i] = normalizeVector(vec)
		}
		return vectors, nil
	})
}

// Dimensions returns the embedding width.
func (e *OllamaEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// ModelName returns the model identifier.
func (e *OllamaEmbedder) ModelName() string {
	return e.config.Model
}

// Available probes the tags endpoint with a short deadline.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet,
		e.config.Host+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close releases resources.
func (e *OllamaEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

var _ Embedder = (*OllamaEmbedder)(nil)
