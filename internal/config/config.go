// Package config provides configuration loading and structs for the knowledge core.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Answer    AnswerConfig    `yaml:"answer"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the document database, counter database, and
// the vector index snapshot.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	CounterDBPath   string `yaml:"counter_db_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// EmbeddingConfig holds embedder settings. Provider "hash" is the deterministic
// default; "onnx" requires a model file and a CGO build.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// SearchConfig holds chunking and hybrid retrieval settings.
type SearchConfig struct {
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	MinChunkSize   int     `yaml:"min_chunk_size"`
	DefaultTopK    int     `yaml:"default_top_k"`
	MaxTopK        int     `yaml:"max_top_k"`
	Alpha          float64 `yaml:"alpha"`
	RerankEnabled  bool    `yaml:"rerank_enabled"`
	CandidateRatio int     `yaml:"candidate_ratio"`
}

// RateLimitConfig holds per-tenant metering windows and alert settings.
type RateLimitConfig struct {
	RequestsPerMinute int64 `yaml:"requests_per_minute"`
	TokensPerHour     int64 `yaml:"tokens_per_hour"`
	CostCentsPerDay   int64 `yaml:"cost_cents_per_day"`
	// AlertCooldownSeconds suppresses duplicate budget alerts for the same
	// tenant/level within the window.
	AlertCooldownSeconds int `yaml:"alert_cooldown_seconds"`
	// ProactiveRate is the local token-bucket smoothing rate (calls/sec)
	// applied before the distributed check. Zero disables it.
	ProactiveRate float64 `yaml:"proactive_rate"`
}

// AnswerConfig holds generation pipeline settings.
type AnswerConfig struct {
	// TemplateID is the prompt template used when a request names none.
	TemplateID  string  `yaml:"template_id"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	// CostPerThousandTokens prices provider calls for pre-call budget checks.
	CostPerThousandTokens float64 `yaml:"cost_per_thousand_tokens"`
}

// WatchConfig holds drop-directory ingest settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	// OrganizationID stamps documents ingested from watched directories.
	OrganizationID string `yaml:"organization_id"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.CounterDBPath = expandPath(cfg.Storage.CounterDBPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
