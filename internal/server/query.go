package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/docqa-go/internal/answer"
	"github.com/54b3r/docqa-go/internal/logging"
	"github.com/54b3r/docqa-go/internal/rag"
)

// maxQueryBody bounds the JSON body of POST /api/query.
const maxQueryBody = 64 << 10

// handleQuery handles POST /api/query. Before anything has been ingested it
// replies 400 "no documents loaded"; the question is never answered from an
// empty context.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBody)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, r, http.StatusBadRequest, "question is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.QueryTimeout)
	defer cancel()

	log.Info("query received", slog.Int("question_len", len(req.Question)))
	ans, err := s.asker.Ask(ctx, req.Question)
	if err != nil {
		status, outcome, msg := classifyQueryError(err)
		s.metrics.observeQuery(outcome, time.Since(start))
		if status >= http.StatusInternalServerError {
			log.Error("query failed", slog.String("outcome", outcome), slog.Any("error", err))
		}
		writeError(w, r, status, msg)
		return
	}
	s.metrics.observeQuery("ok", time.Since(start))

	resp := queryResponse{Response: ans.Text, Sources: make([]sourceRef, 0, len(ans.Sources))}
	for _, src := range ans.Sources {
		resp.Sources = append(resp.Sources, sourceRef{
			Source: src.Chunk.Source,
			Page:   src.Chunk.Page,
			Score:  src.Score,
			Text:   src.Chunk.Text,
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// classifyQueryError maps an Ask failure to an HTTP status, a metrics outcome
// label and the message shown to the client.
func classifyQueryError(err error) (int, string, string) {
	var embErr *rag.EmbeddingError
	var dimErr *rag.DimensionMismatchError
	switch {
	case errors.Is(err, rag.ErrNoIndex):
		return http.StatusBadRequest, "no_index", rag.ErrNoIndex.Error()
	case errors.Is(err, answer.ErrEmptyQuestion):
		return http.StatusBadRequest, "invalid", "question is required"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", "query timed out"
	case errors.As(err, &dimErr):
		return http.StatusInternalServerError, "error", "index was built with a different embedding model"
	case errors.As(err, &embErr):
		return http.StatusBadGateway, "embedding_error", "embedding service unavailable"
	default:
		return http.StatusInternalServerError, "error", "failed to answer question"
	}
}
