// Package config provides configuration loading and structs for the Kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Context    ContextConfig    `yaml:"context"`
	Generation GenerationConfig `yaml:"generation"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Logs       LogsConfig       `yaml:"logs"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the index artifact location.
type StorageConfig struct {
	// ArtifactPath is the directory holding chunks.db and vectors.bin.
	ArtifactPath string `yaml:"artifact_path"`
	// WatchArtifact enables hot-reload of the artifact via fsnotify.
	WatchArtifact bool `yaml:"watch_artifact"`
}

// EmbeddingConfig holds encoder settings. ModelName identifies the model for
// stale-index detection; an artifact built with a different model is rejected.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	ModelName  string `yaml:"model_name"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// RetrievalConfig holds retriever settings.
type RetrievalConfig struct {
	TopK            int     `yaml:"top_k"`
	OverfetchFactor int     `yaml:"overfetch_factor"`
	MaxPerSource    int     `yaml:"max_per_source"`
	// KeywordBoost weights the keyword-overlap re-rank signal. 0 disables it.
	KeywordBoost float64 `yaml:"keyword_boost"`
	// HistoryTurns is how many prior user turns are prepended to the query
	// before embedding.
	HistoryTurns int `yaml:"history_turns"`
}

// ContextConfig holds context assembly settings.
type ContextConfig struct {
	BudgetChars int `yaml:"budget_chars"`
}

// GenerationConfig holds LLM provider settings.
type GenerationConfig struct {
	BaseURL       string  `yaml:"base_url"`
	Model         string  `yaml:"model"`
	TimeoutMS     int     `yaml:"timeout_ms"`
	Retries       int     `yaml:"retries"`
	BackoffMS     int     `yaml:"backoff_ms"`
	Temperature   float32 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	MaxConcurrent int     `yaml:"max_concurrent"`
}

// IngestConfig holds corpus build settings.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// LogsConfig holds optional query logging settings.
type LogsConfig struct {
	// QueryLogPath appends a JSONL record per answered query when set.
	QueryLogPath string `yaml:"query_log_path"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. A .env file next to the config (or in the working directory) is
// loaded for the provider API key.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	cfg.Storage.ArtifactPath = expandPath(cfg.Storage.ArtifactPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Logs.QueryLogPath != "" {
		cfg.Logs.QueryLogPath = expandPath(cfg.Logs.QueryLogPath, configDir)
	}

	// Best effort; the key may also come from the real environment.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	_ = godotenv.Load()

	return cfg, nil
}

// APIKey returns the generation provider API key from the environment.
func APIKey() string {
	return os.Getenv("GROQ_API_KEY")
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
