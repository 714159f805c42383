// Package config loads and validates ExpertScout configuration.
//
// Configuration is resolved in order: built-in defaults, then the YAML
// config file (.expertscout.yaml), then EXPERTSCOUT_* environment
// variables. Later sources win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	scouterr "github.com/expertscout/expertscout/internal/errors"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = ".expertscout.yaml"

// Config is the root configuration for ExpertScout.
type Config struct {
	Version  string         `yaml:"version"`
	Storage  StorageConfig  `yaml:"storage"`
	Search   SearchConfig   `yaml:"search"`
	Learner  LearnerConfig  `yaml:"learner"`
	Reasoner ReasonerConfig `yaml:"reasoner"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StorageConfig controls where indexes and learned state live.
type StorageConfig struct {
	// DataDir is the root directory for indexes, learning DB, sessions.
	DataDir string `yaml:"data_dir"`
}

// SearchConfig controls retrieval, fusion, and result shaping.
type SearchConfig struct {
	// FusionPolicy selects the score fusion: "normalized" or "weighted_raw".
	FusionPolicy string `yaml:"fusion_policy"`
	// Alpha is the vector-channel weight for normalized fusion [0,1].
	Alpha float64 `yaml:"alpha"`
	// KeywordWeight and VectorWeight are the raw-score multipliers for
	// the weighted_raw policy.
	KeywordWeight float64 `yaml:"keyword_weight"`
	VectorWeight  float64 `yaml:"vector_weight"`
	// TopK is how many candidates each channel retrieves per query.
	TopK int `yaml:"top_k"`
	// KeepTop caps the candidates kept in a search result.
	KeepTop int `yaml:"keep_top"`
	// DisplayLimit caps the candidates rendered to the user.
	DisplayLimit int `yaml:"display_limit"`
	// RelevanceThreshold is the fused-score cutoff the quality scorer
	// counts as "highly relevant".
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
}

// LearnerConfig controls strategy selection and learning.
type LearnerConfig struct {
	// Alpha is the EMA learning rate applied to strategy stats.
	Alpha float64 `yaml:"alpha"`
	// FlushEvery is how many learning records accumulate before a flush.
	FlushEvery int `yaml:"flush_every"`
	// TargetQuality ends a search once reached.
	TargetQuality float64 `yaml:"target_quality"`
	// MaxIterations caps strategy attempts per search.
	MaxIterations int `yaml:"max_iterations"`
	// MaxStrategies caps distinct strategies tried per search.
	MaxStrategies int `yaml:"max_strategies"`
}

// ReasonerConfig controls the LLM reasoning service.
type ReasonerConfig struct {
	// Enabled turns the remote reasoner on. When false only the
	// deterministic heuristics run.
	Enabled bool `yaml:"enabled"`
	// Endpoint is the Ollama-compatible base URL.
	Endpoint string `yaml:"endpoint"`
	// Model is the generation model name.
	Model string `yaml:"model"`
	// TimeoutSecs bounds a single generation call.
	TimeoutSecs int `yaml:"timeout_secs"`
	// CacheSize is the LRU size for classification results.
	CacheSize int `yaml:"cache_size"`
}

// EmbedderConfig controls the embedding service.
type EmbedderConfig struct {
	// Enabled turns the remote embedder on; otherwise the static
	// hash embedder is used.
	Enabled bool `yaml:"enabled"`
	// Endpoint is the Ollama-compatible base URL.
	Endpoint string `yaml:"endpoint"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions is the embedding vector width.
	Dimensions int `yaml:"dimensions"`
	// CacheSize is the LRU size for embedding results.
	CacheSize int `yaml:"cache_size"`
	// TimeoutSecs bounds a single embedding call.
	TimeoutSecs int `yaml:"timeout_secs"`
}

// MonitorConfig controls the background search monitor.
type MonitorConfig struct {
	Enabled bool `yaml:"enabled"`
	// IntervalSecs is how often unsatisfied searches are re-issued.
	IntervalSecs int `yaml:"interval_secs"`
	// MaxAttempts caps re-runs per watched search.
	MaxAttempts int `yaml:"max_attempts"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// NewConfig returns a Config with all defaults applied.
func NewConfig() *Config {
	return &Config{
		Version: "1",
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Search: SearchConfig{
			FusionPolicy:       "normalized",
			Alpha:              0.6,
			KeywordWeight:      1.2,
			VectorWeight:       1.5,
			TopK:               10,
			KeepTop:            20,
			DisplayLimit:       10,
			RelevanceThreshold: 0.7,
		},
		Learner: LearnerConfig{
			Alpha:         0.1,
			FlushEvery:    10,
			TargetQuality: 0.8,
			MaxIterations: 10,
			MaxStrategies: 5,
		},
		Reasoner: ReasonerConfig{
			Enabled:     true,
			Endpoint:    "http://localhost:11434",
			Model:       "qwen2.5:3b",
			TimeoutSecs: 120,
			CacheSize:   1000,
		},
		Embedder: EmbedderConfig{
			Enabled:     true,
			Endpoint:    "http://localhost:11434",
			Model:       "all-minilm",
			Dimensions:  384,
			CacheSize:   10000,
			TimeoutSecs: 30,
		},
		Monitor: MonitorConfig{
			Enabled:      false,
			IntervalSecs: 1800,
			MaxAttempts:  3,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".expertscout")
	}
	return filepath.Join(home, ".expertscout")
}

// Load reads configuration from path, falling back to defaults for any
// field the file omits, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, scouterr.New(scouterr.ErrCodeConfigNotFound,
				fmt.Sprintf("config file not found: %s", path), err)
		}
		return nil, scouterr.ConfigError("reading config file", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, scouterr.ConfigError("parsing config file", err).
			WithDetail("path", path).
			WithSuggestion("check the YAML syntax")
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the config file when present, otherwise returns
// defaults with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultFileName
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := NewConfig()
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return Load(path)
}

// applyEnvOverrides applies EXPERTSCOUT_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("EXPERTSCOUT_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("EXPERTSCOUT_REASONER_ENDPOINT"); v != "" {
		c.Reasoner.Endpoint = v
	}
	if v := os.Getenv("EXPERTSCOUT_REASONER_MODEL"); v != "" {
		c.Reasoner.Model = v
	}
	if v := os.Getenv("EXPERTSCOUT_EMBEDDER_ENDPOINT"); v != "" {
		c.Embedder.Endpoint = v
	}
	if v := os.Getenv("EXPERTSCOUT_EMBEDDER_MODEL"); v != "" {
		c.Embedder.Model = v
	}
	if v := os.Getenv("EXPERTSCOUT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EXPERTSCOUT_FUSION_POLICY"); v != "" {
		c.Search.FusionPolicy = v
	}
	if v := os.Getenv("EXPERTSCOUT_FUSION_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.Alpha = f
		}
	}
	if v := os.Getenv("EXPERTSCOUT_TARGET_QUALITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Learner.TargetQuality = f
		}
	}
	if v := os.Getenv("EXPERTSCOUT_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Learner.MaxIterations = n
		}
	}
	if v := os.Getenv("EXPERTSCOUT_REASONER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Reasoner.Enabled = b
		}
	}
	if v := os.Getenv("EXPERTSCOUT_EMBEDDER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Embedder.Enabled = b
		}
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		return scouterr.ConfigError(
			fmt.Sprintf("search.alpha must be in [0,1], got %v", c.Search.Alpha), nil)
	}
	switch c.Search.FusionPolicy {
	case "normalized", "weighted_raw":
	default:
		return scouterr.ConfigError(
			fmt.Sprintf("search.fusion_policy must be normalized or weighted_raw, got %q", c.Search.FusionPolicy), nil)
	}
	if c.Search.TopK < 1 {
		return scouterr.ConfigError("search.top_k must be positive", nil)
	}
	if c.Search.KeepTop < c.Search.DisplayLimit {
		return scouterr.ConfigError("search.keep_top must be >= search.display_limit", nil)
	}
	if c.Learner.Alpha <= 0 || c.Learner.Alpha >= 1 {
		return scouterr.ConfigError(
			fmt.Sprintf("learner.alpha must be in (0,1), got %v", c.Learner.Alpha), nil)
	}
	if c.Learner.TargetQuality < 0 || c.Learner.TargetQuality > 1 {
		return scouterr.ConfigError("learner.target_quality must be in [0,1]", nil)
	}
	if c.Learner.MaxIterations < 1 {
		return scouterr.ConfigError("learner.max_iterations must be positive", nil)
	}
	if c.Learner.FlushEvery < 1 {
		return scouterr.ConfigError("learner.flush_every must be positive", nil)
	}
	if c.Embedder.Dimensions < 1 {
		return scouterr.ConfigError("embedder.dimensions must be positive", nil)
	}
	if c.Monitor.IntervalSecs < 1 {
		return scouterr.ConfigError("monitor.interval_secs must be positive", nil)
	}
	return nil
}

// Save writes the configuration to path as YAML (atomic write).
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return scouterr.ConfigError("marshaling config", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return scouterr.ConfigError("writing config file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return scouterr.ConfigError("replacing config file", err)
	}
	return nil
}

// ReasonerTimeout returns the reasoner timeout as a Duration.
func (c *Config) ReasonerTimeout() time.Duration {
	return time.Duration(c.Reasoner.TimeoutSecs) * time.Second
}

// EmbedderTimeout returns the embedder timeout as a Duration.
func (c *Config) EmbedderTimeout() time.Duration {
	return time.Duration(c.Embedder.TimeoutSecs) * time.Second
}

// MonitorInterval returns the monitor interval as a Duration.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSecs) * time.Second
}
