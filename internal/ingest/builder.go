package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fitcoach/kotae/internal/config"
	"github.com/fitcoach/kotae/internal/embedding"
	"github.com/fitcoach/kotae/internal/models"
	"github.com/fitcoach/kotae/internal/storage"
	"github.com/fitcoach/kotae/internal/vector"
)

// embedBatchSize bounds how many chunk texts go to the encoder per call.
const embedBatchSize = 32

// Builder turns a corpus directory into the index artifact: chunks.db with
// metadata and vectors.bin stamped with the encoder's model identity.
type Builder struct {
	embedder embedding.Embedder
	cfg      *config.Config
	logger   *zap.Logger
}

// BuildResult summarizes a completed build.
type BuildResult struct {
	Sources int
	Chunks  int
	Skipped []string
}

// NewBuilder creates a corpus builder.
func NewBuilder(embedder embedding.Embedder, cfg *config.Config, logger *zap.Logger) *Builder {
	return &Builder{embedder: embedder, cfg: cfg, logger: logger}
}

// Build extracts, categorizes, chunks, and embeds every supported document
// under corpusDir, then persists the artifact into outDir. Unreadable files
// are skipped with a warning; an empty corpus is an error.
func (b *Builder) Build(ctx context.Context, corpusDir, outDir string) (*BuildResult, error) {
	files, err := listCorpusFiles(corpusDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no corpus documents under %s", corpusDir)
	}

	result := &BuildResult{}
	var chunks []*models.Chunk
	for _, path := range files {
		filename := filepath.Base(path)
		text, err := ExtractFile(path)
		if err != nil {
			b.logger.Warn("skipping unreadable document",
				zap.String("file", filename), zap.Error(err))
			result.Skipped = append(result.Skipped, filename)
			continue
		}

		sourceID := SourceIDFromFilename(filename)
		category := CategoryFromFilename(filename)
		spans, err := ChunkText(text, b.cfg.Ingest.ChunkSize, b.cfg.Ingest.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", filename, err)
		}
		for i, span := range spans {
			chunks = append(chunks, &models.Chunk{
				ID:          models.ChunkID(sourceID, i),
				SourceID:    sourceID,
				Category:    category,
				Text:        span.Text,
				ChunkIndex:  i,
				StartOffset: span.Start,
				EndOffset:   span.End,
			})
		}
		result.Sources++
		b.logger.Info("ingested document",
			zap.String("source_id", sourceID),
			zap.String("category", string(category)),
			zap.Int("chunks", len(spans)))
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("corpus produced no chunks")
	}
	result.Chunks = len(chunks)

	if err := b.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}
	if err := b.persist(ctx, chunks, outDir); err != nil {
		return nil, err
	}
	return result, nil
}

func (b *Builder) embedChunks(ctx context.Context, chunks []*models.Chunk) error {
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}
		vectors, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}
		for i, v := range vectors {
			chunks[start+i].Embedding = v
		}
	}
	return nil
}

func (b *Builder) persist(ctx context.Context, chunks []*models.Chunk, outDir string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	store, err := storage.NewSQLiteStore(filepath.Join(outDir, "chunks.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.BatchCreateChunks(ctx, chunks); err != nil {
		return err
	}
	if err := store.SetMeta(ctx, &storage.IndexMeta{
		EmbeddingModel: b.embedder.ModelID(),
		Dimensions:     b.embedder.Dimensions(),
		ChunkSize:      b.cfg.Ingest.ChunkSize,
		ChunkOverlap:   b.cfg.Ingest.ChunkOverlap,
		BuiltAt:        time.Now().UTC(),
	}); err != nil {
		return err
	}

	idx, err := vector.NewMemoryIndex(b.embedder.Dimensions(), b.embedder.ModelID())
	if err != nil {
		return err
	}
	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		vectors[i] = c.Embedding
	}
	if err := idx.Add(ctx, ids, vectors); err != nil {
		return err
	}
	return idx.Save(filepath.Join(outDir, "vectors.bin"))
}

// listCorpusFiles returns supported documents under dir in sorted order so
// rebuilds are deterministic.
func listCorpusFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".pdf", ".md", ".txt":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
