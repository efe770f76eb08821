package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docqa-go/internal/answer"
	"github.com/54b3r/docqa-go/internal/ingestion"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request, uploads
	// included.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// cover embedding a large upload.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// QueryTimeout bounds a single /api/query request (default: 2m).
	QueryTimeout time.Duration
	// MaxUploadBytes caps the body of POST /api/upload (default: 64 MiB).
	MaxUploadBytes int64
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on /api/query and /api/upload.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// asker answers a question. *answer.Service satisfies it; tests inject a fake.
type asker interface {
	Ask(ctx context.Context, question string) (*answer.Answer, error)
}

// ingester adds uploaded files to the index. *ingestion.Pipeline satisfies it.
type ingester interface {
	Ingest(ctx context.Context, sources []ingestion.Source, progress func(string)) (*ingestion.Report, error)
}

// Server is the HTTP server in front of the question-answering service.
type Server struct {
	// asker answers POST /api/query.
	asker asker
	// ingester handles POST /api/upload.
	ingester ingester
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors owned by the server.
	metrics *serverMetrics
	// throttle rate-limits guarded routes per client IP.
	throttle *throttle
	// stopSweep stops the throttle's idle-bucket sweeper.
	stopSweep context.CancelFunc
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
}

// sourceRef describes one excerpt used to answer a question.
type sourceRef struct {
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Score  float32 `json:"score"`
	Text   string  `json:"text"`
}

// queryResponse is the JSON response for POST /api/query.
type queryResponse struct {
	// Response is the generated answer.
	Response string `json:"response"`
	// Sources lists the excerpts given to the model, best match first.
	Sources []sourceRef `json:"sources"`
}

// uploadResponse is the JSON response for POST /api/upload.
type uploadResponse struct {
	// Message is a human-readable summary.
	Message string `json:"message"`
	// Report carries per-batch counts and per-file failures.
	Report *ingestion.Report `json:"report"`
}

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Detail string `json:"detail"`
}
