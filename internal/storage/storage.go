// Package storage persists chunk metadata for the index artifact.
package storage

import (
	"context"
	"time"

	"github.com/fitcoach/kotae/internal/models"
)

// IndexMeta records how the artifact was built. The embedding model identity
// is checked against the configured encoder at load time.
type IndexMeta struct {
	EmbeddingModel string    `json:"embedding_model"`
	Dimensions     int       `json:"dimensions"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	BuiltAt        time.Time `json:"built_at"`
}

// Store provides read access to chunks at serving time and write access
// during index builds. Serving never mutates the store.
type Store interface {
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	// ListChunks returns all chunks ordered by (source_id, chunk_index).
	ListChunks(ctx context.Context) ([]*models.Chunk, error)
	CountChunks(ctx context.Context) (int, error)
	CountSources(ctx context.Context) (int, error)
	SetMeta(ctx context.Context, meta *IndexMeta) error
	GetMeta(ctx context.Context) (*IndexMeta, error)
	Close() error
}
