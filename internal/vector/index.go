// Package vector provides the in-memory vector index and similarity search.
package vector

import (
	"context"
	"errors"
)

// ErrModelMismatch is returned when an index artifact was built with a
// different embedding model than the one configured. Loading must fail fast
// rather than silently produce meaningless similarity scores.
var ErrModelMismatch = errors.New("vector: index built with different embedding model")

// VectorIndex defines vector storage and similarity search. At serving time
// the index is read-only; rebuilds produce a new index swapped in atomically
// via Holder.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns up to min(k, Size()) results by descending cosine
	// similarity. An empty index returns an empty list, never an error.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Size() int
	// ModelID is the embedding model identity the vectors were produced with.
	ModelID() string
	Save(path string) error
	Close() error
}

// VectorResult is a single vector search hit (ID is the chunk ID).
type VectorResult struct {
	ID    string
	Score float64 // cosine similarity of normalized vectors, range [-1, 1]
}
