package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/54b3r/docqa-go/internal/logging"
	"github.com/54b3r/docqa-go/internal/rag"
)

// Generator produces an answer from a question and its context.
type Generator interface {
	Answer(ctx context.Context, req Request) (Response, error)
}

// Answer is the result of Service.Ask.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"response"`
	// Sources are the excerpts that were given to the model, best match first.
	Sources []rag.Result `json:"sources"`
}

// Service answers questions over the indexed corpus.
type Service struct {
	retriever rag.Retriever
	generator Generator
	topK      int
}

// NewService joins a retriever and a generator. topK <= 0 defers to the
// retriever's default.
func NewService(r rag.Retriever, g Generator, topK int) (*Service, error) {
	if r == nil {
		return nil, fmt.Errorf("answer: retriever must not be nil")
	}
	if g == nil {
		return nil, fmt.Errorf("answer: generator must not be nil")
	}
	return &Service{retriever: r, generator: g, topK: topK}, nil
}

// Ask retrieves the excerpts most similar to question and has the model answer
// from them. rag.ErrNoIndex is returned unchanged when nothing has been
// ingested, and retrieval failures are never turned into an empty answer.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	log := logging.FromContext(ctx)
	start := time.Now()

	results, err := s.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	excerpts := make([]string, len(results))
	for i, r := range results {
		excerpts[i] = fmt.Sprintf("(%s, page %d)\n%s", r.Chunk.Source, r.Chunk.Page, r.Chunk.Text)
	}

	resp, err := s.generator.Answer(ctx, Request{Question: question, Context: excerpts})
	if err != nil {
		return nil, err
	}

	log.Info("answer: question answered",
		slog.Int("retrieved", len(results)),
		slog.Int("used", resp.Used),
		slog.Duration("duration", time.Since(start)),
	)
	return &Answer{Text: resp.Text, Sources: results[:min(resp.Used, len(results))]}, nil
}

// Retrieve returns the ranked excerpts for question without calling the model.
func (s *Service) Retrieve(ctx context.Context, question string) ([]rag.Result, error) {
	return s.retriever.Retrieve(ctx, question, s.topK)
}
