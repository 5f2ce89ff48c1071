package rag

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fitcoach/kotae/internal/config"
	"github.com/fitcoach/kotae/internal/generate"
	"github.com/fitcoach/kotae/internal/metrics"
	"github.com/fitcoach/kotae/internal/models"
	"github.com/fitcoach/kotae/internal/prompt"
)

// Retriever is the retrieval stage as seen by the orchestrator.
type Retriever interface {
	Retrieve(ctx context.Context, query string, history []models.Turn, k int, categoryFilter models.Category) (*models.RetrievalResult, error)
}

// Orchestrator runs the full answer pipeline: validate, retrieve, assemble,
// generate, resolve citations. Generation concurrency is bounded by a
// semaphore so a burst of questions cannot stampede the provider.
type Orchestrator struct {
	retriever Retriever
	generator generate.Generator
	cfg       *config.Config
	logger    *zap.Logger
	sem       chan struct{}
	queryLog  *QueryLog
}

// NewOrchestrator creates the pipeline. queryLog may be nil to disable the
// JSONL audit trail.
func NewOrchestrator(
	retriever Retriever,
	generator generate.Generator,
	cfg *config.Config,
	queryLog *QueryLog,
	logger *zap.Logger,
) *Orchestrator {
	maxConcurrent := cfg.Generation.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		retriever: retriever,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
		sem:       make(chan struct{}, maxConcurrent),
		queryLog:  queryLog,
	}
}

// Answer runs one query through the pipeline and returns a fully owned Answer.
// An empty retrieval is not an error: the model is handed a degraded prompt
// that instructs it to decline, and the answer carries no citations.
func (o *Orchestrator) Answer(ctx context.Context, query *models.AskQuery) (*models.Answer, error) {
	start := time.Now()

	answer, err := o.answer(ctx, query, start)

	outcome := "ok"
	if err != nil {
		outcome = ErrorKind(err)
	} else if len(answer.Citations) == 0 {
		outcome = "degraded"
	}
	metrics.AskRequestsTotal.WithLabelValues(outcome).Inc()

	o.appendQueryLog(query, answer, start, err)
	return answer, err
}

func (o *Orchestrator) answer(ctx context.Context, query *models.AskQuery, start time.Time) (*models.Answer, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	retrieveStart := time.Now()
	result, err := o.retriever.Retrieve(ctx, query.Query, query.History, query.K, models.Category(query.CategoryFilter))
	metrics.StageDuration.WithLabelValues("retrieve").Observe(time.Since(retrieveStart).Seconds())
	if err != nil {
		return nil, &PipelineError{Stage: "retrieve", Err: err}
	}
	metrics.RetrievedChunks.Observe(float64(len(result.Chunks)))

	assembled := prompt.Assemble(result, o.cfg.Context.BudgetChars)
	if assembled.Empty() {
		o.logger.Info("no grounded context for query, answering degraded",
			zap.Int("query_len", len(query.Query)))
	}

	req := generate.Request{
		System: prompt.SystemPrompt(),
		User:   prompt.BuildUserPrompt(assembled, query.Query, query.History),
	}

	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	generateStart := time.Now()
	resp, err := o.generator.Generate(ctx, req)
	metrics.StageDuration.WithLabelValues("generate").Observe(time.Since(generateStart).Seconds())
	if err != nil {
		return nil, &PipelineError{Stage: "generate", Err: err}
	}

	citations, dropped := generate.ResolveCitations(resp.Text, assembled)
	if len(dropped) > 0 {
		o.logger.Warn("model cited markers outside the provided context",
			zap.Ints("markers", dropped))
	}
	if citations == nil {
		citations = []models.Citation{}
	}

	return &models.Answer{
		Text:      resp.Text,
		Citations: citations,
		Retrieval: result,
		LatencyMS: time.Since(start).Milliseconds(),
	}, nil
}

func (o *Orchestrator) appendQueryLog(query *models.AskQuery, answer *models.Answer, start time.Time, err error) {
	if o.queryLog == nil {
		return
	}
	rec := QueryRecord{
		Timestamp: start.UTC(),
		Question:  query.Query,
		ElapsedMS: time.Since(start).Milliseconds(),
		Model:     o.cfg.Generation.Model,
		Success:   err == nil,
	}
	if answer != nil {
		rec.AnswerChars = len(answer.Text)
		seen := make(map[string]bool)
		for _, c := range answer.Citations {
			if !seen[c.SourceID] {
				seen[c.SourceID] = true
				rec.Sources = append(rec.Sources, c.SourceID)
			}
		}
	}
	if logErr := o.queryLog.Append(rec); logErr != nil {
		o.logger.Warn("query log append failed", zap.Error(logErr))
	}
}
