package embedding

import (
	"context"
	"math"

	"github.com/fitcoach/kotae/pkg/utils"
)

// MockModelID is the model identity recorded by MockEmbedder.
const MockModelID = "mock-bow-v1"

// MockEmbedder is a deterministic embedder for tests and local development.
// Each word hashes to a fixed pseudo-random direction and the embedding is the
// normalized sum, so texts sharing words are close under cosine similarity.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder producing deterministic embeddings of
// the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic bag-of-words embedding.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	emb := make([]float32, e.dimensions)
	for _, word := range SplitWords(text) {
		h := HashString(word)
		for i := 0; i < e.dimensions; i++ {
			emb[i] += float32(math.Sin(float64(h*(i+1))) * 0.1)
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelID returns the mock model identity.
func (e *MockEmbedder) ModelID() string {
	return MockModelID
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
