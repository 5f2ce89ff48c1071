package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/fitcoach/kotae/internal/config"
	"github.com/fitcoach/kotae/internal/embedding"
	"github.com/fitcoach/kotae/internal/generate"
	"github.com/fitcoach/kotae/internal/models"
	"github.com/fitcoach/kotae/internal/prompt"
	"github.com/fitcoach/kotae/internal/retrieval"
	"github.com/fitcoach/kotae/internal/storage"
	"github.com/fitcoach/kotae/internal/vector"
)

type stubRetriever struct {
	result *models.RetrievalResult
	err    error
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, history []models.Turn, k int, categoryFilter models.Category) (*models.RetrievalResult, error) {
	return s.result, s.err
}

// stubGenerator returns a scripted response and records the last request.
type stubGenerator struct {
	resp    generate.Response
	err     error
	lastReq generate.Request
}

func (s *stubGenerator) Generate(ctx context.Context, req generate.Request) (generate.Response, error) {
	s.lastReq = req
	return s.resp, s.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func scoredChunk(sourceID string, idx int, text string, score float64) *models.ScoredChunk {
	return &models.ScoredChunk{
		Chunk: &models.Chunk{
			ID:       models.ChunkID(sourceID, idx),
			SourceID: sourceID,
			Category: models.CategoryNutrition,
			Text:     text,
		},
		Score: score,
	}
}

func TestAnswer_ResolvesCitations(t *testing.T) {
	retriever := &stubRetriever{result: &models.RetrievalResult{Chunks: []*models.ScoredChunk{
		scoredChunk("protein-review", 0, "protein intake of 1.6 to 2.2 g/kg/day", 0.9),
		scoredChunk("creatine-meta", 0, "creatine five grams daily", 0.7),
	}}}
	generator := &stubGenerator{resp: generate.Response{
		Text: "I recommend 1.6-2.2 g/kg/day [1]. Creatine helps too [2], and [9] is made up.",
	}}
	o := NewOrchestrator(retriever, generator, testConfig(), nil, zap.NewNop())

	answer, err := o.Answer(context.Background(), &models.AskQuery{Query: "how much protein?"})
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Citations) != 2 {
		t.Fatalf("citations = %d, want 2 (marker 9 dropped)", len(answer.Citations))
	}
	if answer.Citations[0].SourceID != "protein-review" || answer.Citations[1].SourceID != "creatine-meta" {
		t.Errorf("citation sources = %+v", answer.Citations)
	}
	if answer.LatencyMS < 0 {
		t.Errorf("latency = %d", answer.LatencyMS)
	}
	if !strings.Contains(generator.lastReq.User, "[1] (source: protein-review)") {
		t.Error("user prompt missing numbered context block")
	}
}

func TestAnswer_DegradedPath(t *testing.T) {
	retriever := &stubRetriever{result: &models.RetrievalResult{}}
	generator := &stubGenerator{resp: generate.Response{Text: prompt.InsufficientInfoPhrase}}
	o := NewOrchestrator(retriever, generator, testConfig(), nil, zap.NewNop())

	answer, err := o.Answer(context.Background(), &models.AskQuery{Query: "best crypto to buy?"})
	if err != nil {
		t.Fatal("degraded path must not be an error")
	}
	if answer.Text != prompt.InsufficientInfoPhrase {
		t.Errorf("text = %q", answer.Text)
	}
	if answer.Citations == nil || len(answer.Citations) != 0 {
		t.Errorf("degraded answer must carry an empty citation list, got %v", answer.Citations)
	}
	if !strings.Contains(generator.lastReq.User, "no grounded information") {
		t.Error("degraded prompt should instruct the model to decline")
	}
}

func TestAnswer_InvalidInput(t *testing.T) {
	o := NewOrchestrator(&stubRetriever{}, &stubGenerator{}, testConfig(), nil, zap.NewNop())

	_, err := o.Answer(context.Background(), &models.AskQuery{Query: ""})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if ErrorKind(err) != "invalid_input" {
		t.Errorf("kind = %q", ErrorKind(err))
	}

	_, err = o.Answer(context.Background(), &models.AskQuery{Query: "q", CategoryFilter: "astrology"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown category: err = %v", err)
	}
}

func TestAnswer_GenerationErrorAttributed(t *testing.T) {
	retriever := &stubRetriever{result: &models.RetrievalResult{Chunks: []*models.ScoredChunk{
		scoredChunk("src", 0, "text", 0.5),
	}}}
	generator := &stubGenerator{err: fmt.Errorf("%w: provider down", generate.ErrTimeout)}
	o := NewOrchestrator(retriever, generator, testConfig(), nil, zap.NewNop())

	_, err := o.Answer(context.Background(), &models.AskQuery{Query: "q"})
	var perr *PipelineError
	if !errors.As(err, &perr) || perr.Stage != "generate" {
		t.Fatalf("err = %v, want PipelineError at generate", err)
	}
	if ErrorKind(err) != "generation_timeout" {
		t.Errorf("kind = %q", ErrorKind(err))
	}
}

// mapStore is an in-memory Store for the end to end test.
type mapStore struct {
	chunks map[string]*models.Chunk
}

func (m *mapStore) BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error {
	for _, ch := range chunks {
		m.chunks[ch.ID] = ch
	}
	return nil
}

func (m *mapStore) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	ch, ok := m.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	return ch, nil
}

func (m *mapStore) ListChunks(ctx context.Context) ([]*models.Chunk, error) { return nil, nil }
func (m *mapStore) CountChunks(ctx context.Context) (int, error)            { return len(m.chunks), nil }
func (m *mapStore) CountSources(ctx context.Context) (int, error)           { return 0, nil }
func (m *mapStore) SetMeta(ctx context.Context, meta *storage.IndexMeta) error {
	return nil
}
func (m *mapStore) GetMeta(ctx context.Context) (*storage.IndexMeta, error) {
	return nil, fmt.Errorf("no meta")
}
func (m *mapStore) Close() error { return nil }

// TestAnswer_EndToEnd runs a real retriever over an indexed fitness corpus and
// checks the protein question surfaces the protein review with a resolvable
// citation.
func TestAnswer_EndToEnd(t *testing.T) {
	ctx := context.Background()
	embedder := embedding.NewMockEmbedder(128)
	idx, err := vector.NewMemoryIndex(128, embedder.ModelID())
	if err != nil {
		t.Fatal(err)
	}
	store := &mapStore{chunks: make(map[string]*models.Chunk)}

	corpus := []struct {
		sourceID string
		category models.Category
		text     string
	}{
		{"iso-2017-protein-review", models.CategoryNutrition, "protein intake of 1.6 to 2.2 g/kg/day supports muscle protein synthesis and growth"},
		{"volume-landmarks", models.CategoryTraining, "weekly training volume between ten and twenty sets per week maximizes hypertrophy"},
		{"sleep-recovery", models.CategoryRecovery, "sleep deprivation impairs recovery and reduces strength performance"},
		{"creatine-meta", models.CategoryNutrition, "creatine monohydrate five grams daily increases strength outcomes"},
	}
	for i, entry := range corpus {
		chunk := &models.Chunk{
			ID:       models.ChunkID(entry.sourceID, 0),
			SourceID: entry.sourceID,
			Category: entry.category,
			Text:     entry.text,
		}
		if err := store.BatchCreateChunks(ctx, []*models.Chunk{chunk}); err != nil {
			t.Fatal(err)
		}
		emb, err := embedder.Embed(ctx, entry.text)
		if err != nil {
			t.Fatalf("embed corpus entry %d: %v", i, err)
		}
		if err := idx.Add(ctx, []string{chunk.ID}, [][]float32{emb}); err != nil {
			t.Fatal(err)
		}
	}

	cfg := testConfig()
	retriever := retrieval.NewRetriever(embedder, vector.NewHolder(idx), store, nil, &cfg.Retrieval, zap.NewNop())
	generator := &stubGenerator{resp: generate.Response{
		Text: "Aim for 1.6-2.2 grams of protein per kilogram of bodyweight per day [1].",
	}}
	o := NewOrchestrator(retriever, generator, cfg, nil, zap.NewNop())

	answer, err := o.Answer(ctx, &models.AskQuery{
		Query: "how much protein should I eat per day to build muscle",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Retrieval.Chunks) == 0 {
		t.Fatal("expected retrieval hits")
	}
	topTwo := answer.Retrieval.Chunks
	if len(topTwo) > 2 {
		topTwo = topTwo[:2]
	}
	found := false
	for _, c := range topTwo {
		if c.Chunk.SourceID == "iso-2017-protein-review" {
			found = true
		}
	}
	if !found {
		t.Errorf("protein review not in top 2: %s, %s",
			answer.Retrieval.Chunks[0].Chunk.SourceID, answer.Retrieval.Chunks[len(topTwo)-1].Chunk.SourceID)
	}
	if len(answer.Citations) != 1 {
		t.Fatalf("citations = %d, want 1", len(answer.Citations))
	}
	if answer.Citations[0].SourceID != answer.Retrieval.Chunks[0].Chunk.SourceID {
		t.Errorf("citation [1] should resolve to the top chunk, got %s", answer.Citations[0].SourceID)
	}
}
