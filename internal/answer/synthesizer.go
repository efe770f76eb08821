// Package answer turns retrieved excerpts into a natural-language answer.
// The Synthesizer prompts a chat model with the excerpts and the question;
// the Service joins it to a rag.Retriever to answer questions end to end.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docqa-go/internal/budget"
)

const systemTemplate = `You answer questions about a collection of documents.
Use only the numbered excerpts below. If they do not contain the answer, say
that you don't know rather than guessing. Answer in the language of the question.

Excerpts:
{context}`

const questionTemplate = `{question}`

// ErrEmptyQuestion is returned when the question is blank.
var ErrEmptyQuestion = errors.New("answer: question must not be empty")

// Request is the input of one synthesis call.
type Request struct {
	// Question is the user's question.
	Question string
	// Context holds the retrieved excerpts, best match first.
	Context []string
}

// Response is the output of one synthesis call.
type Response struct {
	// Text is the model's answer.
	Text string
	// Used is the number of leading excerpts that fit the prompt budget.
	Used int
}

// Config configures a Synthesizer.
type Config struct {
	// MaxContextTokens bounds the estimated prompt size. Defaults to
	// budget.DefaultMaxContextTokens.
	MaxContextTokens int

	// MaxAttempts is the total number of model calls per answer (default: 3).
	MaxAttempts int

	// InitialInterval is the first retry delay (default: 1s).
	InitialInterval time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Synthesizer prompts a chat model with retrieved context.
type Synthesizer struct {
	model    model.BaseChatModel
	template prompt.ChatTemplate
	cfg      Config
}

// NewSynthesizer returns a Synthesizer over m.
func NewSynthesizer(m model.BaseChatModel, cfg Config) (*Synthesizer, error) {
	if m == nil {
		return nil, fmt.Errorf("answer: chat model must not be nil")
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = budget.DefaultMaxContextTokens
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Synthesizer{
		model: m,
		template: prompt.FromMessages(schema.FString,
			schema.SystemMessage(systemTemplate),
			schema.UserMessage(questionTemplate),
		),
		cfg: cfg,
	}, nil
}

// Answer asks the model to answer req.Question from req.Context. Excerpts
// are dropped from the lowest-ranked end until the prompt fits the budget.
func (s *Synthesizer) Answer(ctx context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, ErrEmptyQuestion
	}

	fixed, err := s.render(ctx, question, nil)
	if err != nil {
		return Response{}, err
	}
	excerpts := budget.TrimContext(fixed, req.Context, s.cfg.MaxContextTokens)
	if len(excerpts) < len(req.Context) {
		s.cfg.Logger.Debug("answer: context trimmed to budget",
			slog.Int("excerpts", len(req.Context)),
			slog.Int("kept", len(excerpts)),
			slog.Int("max_tokens", s.cfg.MaxContextTokens),
		)
	}

	msgs, err := s.render(ctx, question, excerpts)
	if err != nil {
		return Response{}, err
	}

	out, err := s.generate(ctx, msgs)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: strings.TrimSpace(out.Content), Used: len(excerpts)}, nil
}

func (s *Synthesizer) render(ctx context.Context, question string, excerpts []string) ([]*schema.Message, error) {
	msgs, err := s.template.Format(ctx, map[string]any{
		"context":  formatExcerpts(excerpts),
		"question": question,
	})
	if err != nil {
		return nil, fmt.Errorf("answer: render prompt: %w", err)
	}
	return msgs, nil
}

// generate calls the model with bounded exponential backoff. A cancelled
// context stops immediately.
func (s *Synthesizer) generate(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
	attempt := 0
	op := func() (*schema.Message, error) {
		attempt++
		out, err := s.model.Generate(ctx, msgs)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if out == nil {
			return nil, backoff.Permanent(errors.New("model returned no message"))
		}
		return out, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.MaxAttempts-1)), ctx) //nolint:gosec // MaxAttempts is positive

	out, err := backoff.RetryNotifyWithData(op, policy, func(err error, wait time.Duration) {
		s.cfg.Logger.Warn("answer: model call failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
			slog.Any("error", err),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("answer: generate after %d attempt(s): %w", attempt, err)
	}
	return out, nil
}

// formatExcerpts numbers each excerpt from 1.
func formatExcerpts(excerpts []string) string {
	if len(excerpts) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, e := range excerpts {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, strings.TrimSpace(e))
	}
	return strings.TrimRight(sb.String(), "\n")
}
