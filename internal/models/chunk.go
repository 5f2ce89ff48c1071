// Package models defines core data structures for chunks, queries, and answers.
package models

import (
	"fmt"
	"strings"
)

// Category classifies a chunk's source material.
type Category string

const (
	CategoryTraining        Category = "training"
	CategoryNutrition       Category = "nutrition"
	CategoryRecovery        Category = "recovery"
	CategoryExerciseScience Category = "exercise-science"
	CategoryOther           Category = "other"
)

// Categories lists all valid categories in a stable order.
var Categories = []Category{
	CategoryTraining,
	CategoryNutrition,
	CategoryRecovery,
	CategoryExerciseScience,
	CategoryOther,
}

// ParseCategory parses s into a Category. Unknown values return an error;
// use NormalizeCategory for the lenient ingest-side variant.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Categories {
		if c == valid {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// NormalizeCategory parses s leniently, mapping unknown values to CategoryOther.
func NormalizeCategory(s string) Category {
	if c, err := ParseCategory(s); err == nil {
		return c
	}
	return CategoryOther
}

// Chunk is an immutable unit of retrievable text with its source attribution.
// IDs are derived from source and position so they stay stable across rebuilds.
type Chunk struct {
	ID          string   `json:"id" db:"id"`
	SourceID    string   `json:"source_id" db:"source_id"`
	Category    Category `json:"category" db:"category"`
	Text        string   `json:"text" db:"text"`
	ChunkIndex  int      `json:"chunk_index" db:"chunk_index"`
	StartOffset int      `json:"start_offset" db:"start_offset"`
	EndOffset   int      `json:"end_offset" db:"end_offset"`
	Embedding   []float32 `json:"-" db:"-"`
}

// ChunkID builds the stable chunk identifier for a source and chunk position.
func ChunkID(sourceID string, chunkIndex int) string {
	return fmt.Sprintf("%s#%d", sourceID, chunkIndex)
}

// ScoredChunk pairs a chunk with its retrieval similarity score.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalResult is an ordered list of scored chunks, best first.
// Invariants: no duplicate chunk IDs, scores non-increasing.
type RetrievalResult struct {
	Chunks []*ScoredChunk `json:"chunks"`
}

// Empty reports whether the result contains no chunks.
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Chunks) == 0
}
