// Package retrieval turns a query into a ranked list of grounded chunks.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fitcoach/kotae/internal/config"
	"github.com/fitcoach/kotae/internal/embedding"
	"github.com/fitcoach/kotae/internal/keyword"
	"github.com/fitcoach/kotae/internal/models"
	"github.com/fitcoach/kotae/internal/storage"
	"github.com/fitcoach/kotae/internal/vector"
)

// Retriever orchestrates query embedding, index search, filtering, and
// re-ranking into a final ordered candidate list. All dependencies are
// injected; the vector index is read through a Holder so rebuilds can swap it
// atomically under live traffic.
type Retriever struct {
	embedder embedding.Embedder
	index    *vector.Holder
	store    storage.Store
	keywords keyword.Index
	cfg      *config.RetrievalConfig
	logger   *zap.Logger
}

// NewRetriever creates a retriever. keywords may be nil, which disables the
// keyword-overlap re-rank signal.
func NewRetriever(
	embedder embedding.Embedder,
	index *vector.Holder,
	store storage.Store,
	keywords keyword.Index,
	cfg *config.RetrievalConfig,
	logger *zap.Logger,
) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		store:    store,
		keywords: keywords,
		cfg:      cfg,
		logger:   logger,
	}
}

// Retrieve returns at most k chunks ordered by descending score with no
// duplicate chunk IDs. Zero candidates (empty index, everything filtered) is
// not an error: the caller handles the empty result as the degraded path.
func (r *Retriever) Retrieve(ctx context.Context, query string, history []models.Turn, k int, categoryFilter models.Category) (*models.RetrievalResult, error) {
	if k <= 0 {
		k = r.cfg.TopK
	}

	rewritten := RewriteQuery(query, history, r.cfg.HistoryTurns)

	queryEmbedding, err := r.embedder.Embed(ctx, rewritten)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	overfetch := r.cfg.OverfetchFactor
	if overfetch < 1 {
		overfetch = 1
	}
	hits, err := r.index.Get().Search(ctx, queryEmbedding, overfetch*k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	candidates := make([]*models.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		chunk, err := r.store.GetChunk(ctx, hit.ID)
		if err != nil {
			// Vector and metadata halves of the artifact disagree; skip the
			// orphan rather than failing the whole query.
			r.logger.Warn("chunk missing from store", zap.String("chunk_id", hit.ID), zap.Error(err))
			continue
		}
		if categoryFilter != "" && chunk.Category != categoryFilter {
			continue
		}
		candidates = append(candidates, &models.ScoredChunk{Chunk: chunk, Score: hit.Score})
	}

	candidates = r.rerank(ctx, query, candidates)
	candidates = capPerSource(candidates, r.cfg.MaxPerSource)

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return &models.RetrievalResult{Chunks: candidates}, nil
}

// rerank applies the keyword-overlap boost when configured. The boost is a
// quality signal: a failed keyword lookup logs a warning and keeps the
// similarity order.
func (r *Retriever) rerank(ctx context.Context, query string, candidates []*models.ScoredChunk) []*models.ScoredChunk {
	if r.cfg.KeywordBoost <= 0 || r.keywords == nil || len(candidates) == 0 {
		return candidates
	}
	kwResults, err := r.keywords.Search(ctx, query, len(candidates)*2)
	if err != nil {
		r.logger.Warn("keyword re-rank skipped", zap.Error(err))
		return candidates
	}
	kwScores := keyword.NormalizeScores(kwResults)
	for _, c := range candidates {
		c.Score += r.cfg.KeywordBoost * kwScores[c.Chunk.ID]
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// capPerSource keeps at most max chunks per source_id, preserving order.
// max <= 0 disables the cap.
func capPerSource(candidates []*models.ScoredChunk, max int) []*models.ScoredChunk {
	if max <= 0 {
		return candidates
	}
	seen := make(map[string]int)
	out := candidates[:0]
	for _, c := range candidates {
		if seen[c.Chunk.SourceID] >= max {
			continue
		}
		seen[c.Chunk.SourceID]++
		out = append(out, c)
	}
	return out
}

// RewriteQuery prepends the last historyTurns user turns to the query so
// follow-up questions embed with their conversational context. Purely a
// string operation, deterministic.
func RewriteQuery(query string, history []models.Turn, historyTurns int) string {
	if historyTurns <= 0 || len(history) == 0 {
		return query
	}
	var prior []string
	for i := len(history) - 1; i >= 0 && len(prior) < historyTurns; i-- {
		if history[i].Role == "user" && history[i].Text != "" {
			prior = append(prior, history[i].Text)
		}
	}
	if len(prior) == 0 {
		return query
	}
	// prior was collected most-recent first; restore chronological order.
	var sb strings.Builder
	for i := len(prior) - 1; i >= 0; i-- {
		sb.WriteString(prior[i])
		sb.WriteString("\n")
	}
	sb.WriteString(query)
	return sb.String()
}
