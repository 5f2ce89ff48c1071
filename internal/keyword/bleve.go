// Package keyword provides a Bleve keyword index used as the secondary
// re-ranking signal: chunks whose text shares terms with the query get a
// configurable boost on top of their cosine similarity.
package keyword

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// Result is a single keyword hit with Bleve's relevance score.
type Result struct {
	ID    string
	Score float64
}

// Index provides keyword lookup over chunk text.
type Index interface {
	Index(ctx context.Context, id, text string) error
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Close() error
}

type chunkDoc struct {
	Content string `json:"content"`
}

// BleveIndex implements Index with an in-memory Bleve index. The index is
// rebuilt from the chunk store at startup, so nothing is persisted.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates an in-memory keyword index.
// The standard analyzer (lowercase + tokenize, no stemming) keeps matches
// literal: "bayes" should not match a stemmed "bayesi".
func NewBleveIndex() (*BleveIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes a chunk's text by chunk ID.
func (b *BleveIndex) Index(ctx context.Context, id, text string) error {
	return b.index.Index(id, chunkDoc{Content: text})
}

// Search runs a match query and returns up to limit results.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	out := make([]Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// NormalizeScores scales scores so the maximum is 1.0, keeping relative order.
// Returns an empty map for no results.
func NormalizeScores(results []Result) map[string]float64 {
	out := make(map[string]float64, len(results))
	var max float64
	for _, r := range results {
		if r.Score > max {
			max = r.Score
		}
	}
	if max == 0 {
		return out
	}
	for _, r := range results {
		out[r.ID] = r.Score / max
	}
	return out
}
