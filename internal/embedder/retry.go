package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"

	"github.com/54b3r/docqa-go/internal/rag"
)

// RetryConfig bounds the retries of a Retrying embedder.
type RetryConfig struct {
	// MaxAttempts is the total number of calls, including the first (default: 4).
	MaxAttempts int
	// InitialInterval is the first backoff delay (default: 500ms).
	InitialInterval time.Duration
	// MaxInterval caps a single backoff delay (default: 10s).
	MaxInterval time.Duration
	// Logger receives a warning per failed attempt. Defaults to slog.Default().
	Logger *slog.Logger
}

// Retrying wraps an Embedder with bounded exponential backoff. Failures that
// cannot succeed on retry (4xx responses other than 408/429, wrong vector
// counts, cancelled contexts) stop immediately. Every failure is reported as
// *rag.EmbeddingError carrying the number of attempts made.
type Retrying struct {
	next rag.Embedder
	cfg  RetryConfig
}

// WithRetry wraps next.
func WithRetry(next rag.Embedder, cfg RetryConfig) *Retrying {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Retrying{next: next, cfg: cfg}
}

// Embed calls the wrapped embedder until it succeeds or retries run out.
func (r *Retrying) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	attempts := 0
	op := func() ([][]float32, error) {
		attempts++
		out, err := r.next.Embed(ctx, texts)
		if err != nil {
			if !retryable(ctx, err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if len(out) != len(texts) {
			return nil, backoff.Permanent(fmt.Errorf("embedder returned %d vectors for %d texts", len(out), len(texts)))
		}
		return out, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.cfg.MaxAttempts-1)), ctx) //nolint:gosec // MaxAttempts is positive

	out, err := backoff.RetryNotifyWithData(op, policy, func(err error, wait time.Duration) {
		r.cfg.Logger.Warn("embedder: attempt failed, retrying",
			slog.Int("attempt", attempts),
			slog.Int("max_attempts", r.cfg.MaxAttempts),
			slog.Duration("backoff", wait),
			slog.Any("error", err),
		)
	})
	if err != nil {
		return nil, &rag.EmbeddingError{Attempts: attempts, Err: err}
	}
	return out, nil
}

// Ping delegates to the wrapped embedder when it supports health checks.
func (r *Retrying) Ping(ctx context.Context) error {
	if p, ok := r.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// retryable reports whether err may succeed on a later attempt.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}

	var dm *rag.DimensionMismatchError
	if errors.As(err, &dm) {
		return false
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var ollamaErr api.StatusError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	case errors.As(err, &ollamaErr):
		status = ollamaErr.StatusCode
	}
	if status >= 400 && status < 500 {
		return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests
	}
	return true
}
