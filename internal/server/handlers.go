package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitcoach/kotae/internal/models"
	"github.com/fitcoach/kotae/internal/rag"
)

// errorEnvelope is the API failure shape: a stable machine-readable kind plus
// a human message. Internal details never leak through it.
type errorEnvelope struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	var query models.AskQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}
	s.logger.Debug("ask request",
		zap.String("request_id", requestID),
		zap.Int("query_len", len(query.Query)),
		zap.Int("history_turns", len(query.History)))

	answer, err := s.pipeline.Answer(r.Context(), &query)
	if err != nil {
		kind := rag.ErrorKind(err)
		status, message := statusForKind(kind, err)
		s.logger.Error("ask failed",
			zap.String("request_id", requestID),
			zap.String("error_kind", kind),
			zap.Error(err))
		s.respondError(w, status, kind, message)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

// statusForKind maps pipeline error kinds to HTTP responses. Only validation
// failures echo the underlying message; everything else gets a fixed one.
func statusForKind(kind string, err error) (int, string) {
	switch kind {
	case "invalid_input":
		return http.StatusBadRequest, err.Error()
	case "index_unavailable":
		return http.StatusServiceUnavailable, "index unavailable"
	case "generation_timeout":
		return http.StatusGatewayTimeout, "generation timed out"
	case "generation_failed":
		return http.StatusBadGateway, "generation failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chunkCount, err := s.store.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal", "status unavailable")
		return
	}
	sourceCount, err := s.store.CountSources(ctx)
	if err != nil {
		s.logger.Error("status: count sources failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal", "status unavailable")
		return
	}

	idx := s.index.Get()
	resp := map[string]interface{}{
		"sources":           sourceCount,
		"chunks":            chunkCount,
		"vector_index_size": idx.Size(),
		"embedding_model":   idx.ModelID(),
		"config": map[string]interface{}{
			"top_k":            s.config.Retrieval.TopK,
			"max_per_source":   s.config.Retrieval.MaxPerSource,
			"budget_chars":     s.config.Context.BudgetChars,
			"generation_model": s.config.Generation.Model,
			"chunk_size":       s.config.Ingest.ChunkSize,
			"chunk_overlap":    s.config.Ingest.ChunkOverlap,
		},
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, kind, message string) {
	s.respondJSON(w, status, errorEnvelope{ErrorKind: kind, Message: message})
}
