package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 9090
storage:
  artifact_path: ./index
retrieval:
  top_k: 4
generation:
  timeout_ms: 2000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Retrieval.TopK != 4 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
	if cfg.Generation.TimeoutMS != 2000 {
		t.Errorf("timeout_ms = %d", cfg.Generation.TimeoutMS)
	}
	if cfg.Storage.ArtifactPath != filepath.Join(dir, "index") {
		t.Errorf("artifact path not expanded: %s", cfg.Storage.ArtifactPath)
	}
}

func TestLoad_ExplicitZeroSurvives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
retrieval:
  keyword_boost: 0
generation:
  temperature: 0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Retrieval.KeywordBoost != 0 {
		t.Errorf("keyword_boost = %v, explicit 0 should disable the boost", cfg.Retrieval.KeywordBoost)
	}
	if cfg.Generation.Temperature != 0 {
		t.Errorf("temperature = %v, explicit 0 should survive", cfg.Generation.Temperature)
	}
	// Unset fields still pick up defaults.
	if cfg.Retrieval.TopK != 6 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
	if cfg.Generation.Model != DefaultModel {
		t.Errorf("model = %s", cfg.Generation.Model)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Retrieval.TopK != 6 {
		t.Errorf("default top_k = %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MaxPerSource != 2 {
		t.Errorf("default max_per_source = %d", cfg.Retrieval.MaxPerSource)
	}
	if cfg.Context.BudgetChars != 4000 {
		t.Errorf("default budget_chars = %d", cfg.Context.BudgetChars)
	}
	if cfg.Generation.TimeoutMS != 10000 || cfg.Generation.Retries != 2 {
		t.Errorf("generation defaults = %+v", cfg.Generation)
	}
	if cfg.Generation.BaseURL != DefaultBaseURL {
		t.Errorf("base url = %s", cfg.Generation.BaseURL)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("dimensions = %d", cfg.Embedding.Dimensions)
	}
	if cfg.Ingest.ChunkSize != 1000 || cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("ingest defaults = %+v", cfg.Ingest)
	}
}
