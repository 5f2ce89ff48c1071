package config

// Defaults matching the generation provider and embedding model the corpus
// index is built with.
const (
	DefaultBaseURL        = "https://api.groq.com/openai/v1"
	DefaultModel          = "llama-3.3-70b-versatile"
	DefaultEmbeddingModel = "all-MiniLM-L6-v2"
)

// DefaultConfig returns a Config with every default set. Load unmarshals the
// file over this, so an explicit zero in the file survives: keyword_boost: 0
// disables the boost and temperature: 0 means greedy decoding.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.ArtifactPath == "" {
		cfg.Storage.ArtifactPath = "/usr/local/var/kotae/data/index"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kotae/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.ModelName == "" {
		cfg.Embedding.ModelName = DefaultEmbeddingModel
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 6
	}
	if cfg.Retrieval.OverfetchFactor == 0 {
		cfg.Retrieval.OverfetchFactor = 2
	}
	if cfg.Retrieval.MaxPerSource == 0 {
		cfg.Retrieval.MaxPerSource = 2
	}
	if cfg.Retrieval.KeywordBoost == 0 {
		cfg.Retrieval.KeywordBoost = 0.15
	}
	if cfg.Retrieval.HistoryTurns == 0 {
		cfg.Retrieval.HistoryTurns = 2
	}
	if cfg.Context.BudgetChars == 0 {
		cfg.Context.BudgetChars = 4000
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = DefaultBaseURL
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = DefaultModel
	}
	if cfg.Generation.TimeoutMS == 0 {
		cfg.Generation.TimeoutMS = 10000
	}
	if cfg.Generation.Retries == 0 {
		cfg.Generation.Retries = 2
	}
	if cfg.Generation.BackoffMS == 0 {
		cfg.Generation.BackoffMS = 500
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.1
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 1000
	}
	if cfg.Generation.MaxConcurrent == 0 {
		cfg.Generation.MaxConcurrent = 4
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
}
