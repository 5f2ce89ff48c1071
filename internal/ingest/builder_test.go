package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/fitcoach/kotae/internal/config"
	"github.com/fitcoach/kotae/internal/embedding"
	"github.com/fitcoach/kotae/internal/storage"
	"github.com/fitcoach/kotae/internal/vector"
)

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func buildConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Ingest.ChunkSize = 50
	cfg.Ingest.ChunkOverlap = 10
	return cfg
}

func TestBuilder_Build(t *testing.T) {
	corpusDir := writeCorpus(t, map[string]string{
		"Protein PTC 2022.md": "protein intake of 1.6 to 2.2 g/kg/day supports muscle protein synthesis and daily growth",
		"Training Volume.txt": "weekly training volume between ten and twenty sets per muscle group",
		"unsupported.jpeg":    "binary noise",
	})
	outDir := filepath.Join(t.TempDir(), "artifact")

	embedder := embedding.NewMockEmbedder(64)
	builder := NewBuilder(embedder, buildConfig(), zap.NewNop())

	result, err := builder.Build(context.Background(), corpusDir, outDir)
	if err != nil {
		t.Fatal(err)
	}
	if result.Sources != 2 {
		t.Errorf("sources = %d, want 2 (jpeg ignored)", result.Sources)
	}
	if result.Chunks < 2 {
		t.Errorf("chunks = %d", result.Chunks)
	}

	store, err := storage.NewSQLiteStore(filepath.Join(outDir, "chunks.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	count, err := store.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != result.Chunks {
		t.Errorf("stored chunks = %d, build reported %d", count, result.Chunks)
	}

	chunks, err := store.ListChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sawProtein := false
	for _, c := range chunks {
		if c.SourceID == "protein" {
			sawProtein = true
			if c.Category != "nutrition" {
				t.Errorf("protein chunk category = %s", c.Category)
			}
		}
		if c.EndOffset <= c.StartOffset {
			t.Errorf("chunk %s has empty span [%d, %d)", c.ID, c.StartOffset, c.EndOffset)
		}
	}
	if !sawProtein {
		t.Error("protein source missing from store")
	}

	meta, err := store.GetMeta(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if meta.EmbeddingModel != embedder.ModelID() || meta.Dimensions != 64 {
		t.Errorf("meta = %+v", meta)
	}

	// The vector half must load back under the same model identity.
	idx, err := vector.LoadMemoryIndex(filepath.Join(outDir, "vectors.bin"), embedder.ModelID(), 64)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Size() != result.Chunks {
		t.Errorf("index size = %d, want %d", idx.Size(), result.Chunks)
	}
}

func TestBuilder_EmptyCorpus(t *testing.T) {
	builder := NewBuilder(embedding.NewMockEmbedder(64), buildConfig(), zap.NewNop())
	_, err := builder.Build(context.Background(), t.TempDir(), t.TempDir())
	if err == nil {
		t.Error("empty corpus should be an error")
	}
}

func TestBuilder_DeterministicIDs(t *testing.T) {
	files := map[string]string{
		"Protein PTC 2022.md": "protein intake of 1.6 to 2.2 g/kg/day supports muscle protein synthesis",
	}
	embedder := embedding.NewMockEmbedder(64)

	var ids [2][]string
	for run := 0; run < 2; run++ {
		outDir := filepath.Join(t.TempDir(), "artifact")
		builder := NewBuilder(embedder, buildConfig(), zap.NewNop())
		if _, err := builder.Build(context.Background(), writeCorpus(t, files), outDir); err != nil {
			t.Fatal(err)
		}
		store, err := storage.NewSQLiteStore(filepath.Join(outDir, "chunks.db"))
		if err != nil {
			t.Fatal(err)
		}
		chunks, err := store.ListChunks(context.Background())
		store.Close()
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range chunks {
			ids[run] = append(ids[run], c.ID)
		}
	}
	if len(ids[0]) == 0 || len(ids[0]) != len(ids[1]) {
		t.Fatalf("id counts differ: %d vs %d", len(ids[0]), len(ids[1]))
	}
	for i := range ids[0] {
		if ids[0][i] != ids[1][i] {
			t.Errorf("id %d differs across rebuilds: %s vs %s", i, ids[0][i], ids[1][i])
		}
	}
}
