// Package embedding provides text embedding via ONNX and caching.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyInput is returned when Embed is called with empty text.
var ErrEmptyInput = errors.New("embedding: empty input text")

// Embedder produces vector embeddings for text. Implementations must be
// deterministic for a fixed model version and safe for concurrent use.
// Text longer than the model's token limit is truncated to the prefix.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// ModelID identifies the model and version. Index artifacts record it so
	// a stale index (built with a different model) is rejected at load time.
	ModelID() string
	Close() error
}
