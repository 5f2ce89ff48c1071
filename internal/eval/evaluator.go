// Package eval scores the answer pipeline against a labeled query set.
package eval

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fitcoach/kotae/internal/models"
	"github.com/fitcoach/kotae/pkg/utils"
)

// Answerer is the pipeline surface the evaluator drives.
type Answerer interface {
	Answer(ctx context.Context, query *models.AskQuery) (*models.Answer, error)
}

// LabeledQuery is one evaluation case. RelevantChunkIDs lists the chunks a
// good retrieval should surface; ExpectedCategory, when set, is scored
// against the category of the top retrieved chunk.
type LabeledQuery struct {
	Query            string          `json:"query"`
	ExpectedCategory models.Category `json:"expected_category,omitempty"`
	RelevantChunkIDs []string        `json:"relevant_chunk_ids"`
}

// Report aggregates evaluation metrics over a query set.
type Report struct {
	Queries  int `json:"queries"`
	Failures int `json:"failures"`

	// PrecisionAtK averages |relevant ∩ top-k| / k over queries with labels.
	PrecisionAtK float64 `json:"precision_at_k"`
	// MRR averages 1/rank of the first relevant chunk, 0 when none appears.
	MRR float64 `json:"mrr"`
	// CategoryAccuracy is scored only over queries with an expected category.
	CategoryAccuracy float64 `json:"category_accuracy"`

	LatencyP50MS float64 `json:"latency_p50_ms"`
	LatencyP95MS float64 `json:"latency_p95_ms"`
	LatencyP99MS float64 `json:"latency_p99_ms"`
}

// Evaluator runs labeled queries through a pipeline and aggregates metrics.
type Evaluator struct {
	pipeline Answerer
	k        int
	logger   *zap.Logger
}

// NewEvaluator creates an evaluator scoring the top k retrieved chunks.
func NewEvaluator(pipeline Answerer, k int, logger *zap.Logger) *Evaluator {
	return &Evaluator{pipeline: pipeline, k: k, logger: logger}
}

// Run evaluates all queries. Individual pipeline failures are counted, not
// fatal; the report covers the queries that succeeded.
func (e *Evaluator) Run(ctx context.Context, queries []LabeledQuery) (*Report, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("no labeled queries")
	}

	report := &Report{Queries: len(queries)}
	var precisionSum, mrrSum float64
	var labeled, categoryScored, categoryHits int
	var latencies []float64

	for i, lq := range queries {
		answer, err := e.pipeline.Answer(ctx, &models.AskQuery{Query: lq.Query, K: e.k})
		if err != nil {
			report.Failures++
			e.logger.Warn("evaluation query failed",
				zap.Int("index", i), zap.String("query", lq.Query), zap.Error(err))
			continue
		}
		latencies = append(latencies, float64(answer.LatencyMS))

		retrieved := answer.Retrieval.Chunks
		if len(retrieved) > e.k {
			retrieved = retrieved[:e.k]
		}

		if len(lq.RelevantChunkIDs) > 0 {
			labeled++
			precisionSum += precisionAtK(retrieved, lq.RelevantChunkIDs, e.k)
			mrrSum += reciprocalRank(retrieved, lq.RelevantChunkIDs)
		}
		if lq.ExpectedCategory != "" {
			categoryScored++
			if len(retrieved) > 0 && retrieved[0].Chunk.Category == lq.ExpectedCategory {
				categoryHits++
			}
		}
	}

	if labeled > 0 {
		report.PrecisionAtK = precisionSum / float64(labeled)
		report.MRR = mrrSum / float64(labeled)
	}
	if categoryScored > 0 {
		report.CategoryAccuracy = float64(categoryHits) / float64(categoryScored)
	}
	report.LatencyP50MS = utils.Percentile(latencies, 50)
	report.LatencyP95MS = utils.Percentile(latencies, 95)
	report.LatencyP99MS = utils.Percentile(latencies, 99)
	return report, nil
}

func precisionAtK(retrieved []*models.ScoredChunk, relevant []string, k int) float64 {
	if k <= 0 {
		return 0
	}
	relevantSet := make(map[string]bool, len(relevant))
	for _, id := range relevant {
		relevantSet[id] = true
	}
	hits := 0
	for _, c := range retrieved {
		if relevantSet[c.Chunk.ID] {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

func reciprocalRank(retrieved []*models.ScoredChunk, relevant []string) float64 {
	relevantSet := make(map[string]bool, len(relevant))
	for _, id := range relevant {
		relevantSet[id] = true
	}
	for i, c := range retrieved {
		if relevantSet[c.Chunk.ID] {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// LoadLabeledQueries reads one JSON-encoded LabeledQuery per line.
func LoadLabeledQueries(path string) ([]LabeledQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open query set: %w", err)
	}
	defer f.Close()

	var queries []LabeledQuery
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var lq LabeledQuery
		if err := json.Unmarshal(scanner.Bytes(), &lq); err != nil {
			return nil, fmt.Errorf("query set line %d: %w", line, err)
		}
		if lq.Query == "" {
			return nil, fmt.Errorf("query set line %d: empty query", line)
		}
		queries = append(queries, lq)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return queries, nil
}
