package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docqa-go/internal/answer"
	"github.com/54b3r/docqa-go/internal/chunker"
	"github.com/54b3r/docqa-go/internal/config"
	"github.com/54b3r/docqa-go/internal/embedder"
	"github.com/54b3r/docqa-go/internal/index"
	"github.com/54b3r/docqa-go/internal/ingestion"
	"github.com/54b3r/docqa-go/internal/loader"
	"github.com/54b3r/docqa-go/internal/provider"
	"github.com/54b3r/docqa-go/internal/rag"
	"github.com/54b3r/docqa-go/internal/server"
)

// pipeline bundles the components shared by the ingestion and query paths.
// One Embedder and one VectorIndex are built per process and passed by
// reference to both paths.
type pipeline struct {
	settings config.Settings
	embedder *embedder.Retrying
	index    rag.VectorIndex
	// ping probes the index backend (SQLite store or Qdrant).
	ping func(context.Context) error
}

// Close releases the index.
func (p *pipeline) Close() error { return p.index.Close() }

// buildPipeline resolves settings, validates the embedding config, and opens
// the configured index backend. reg may be nil to skip metrics.
func buildPipeline(ctx context.Context, log *slog.Logger, reg prometheus.Registerer) (*pipeline, error) {
	settings, err := config.SettingsFromEnv()
	if err != nil {
		return nil, err
	}
	if err := embedder.ValidateConfig(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv(log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("backend", embedder.Backend()))

	p := &pipeline{settings: settings, embedder: emb}

	switch settings.IndexBackend {
	case config.BackendQdrant:
		host := config.GetEnvOrDefault("QDRANT_HOST", "localhost")
		port := config.GetEnvInt("QDRANT_PORT", 6334)
		q, err := rag.NewQdrantIndex(ctx, rag.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: os.Getenv("QDRANT_COLLECTION"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
			Embedder:   emb,
			BatchSize:  settings.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		p.index, p.ping = q, q.Ping
		log.Info("qdrant index ready", slog.String("host", host), slog.Int("port", port))

	default:
		var metrics *index.Metrics
		if reg != nil {
			metrics = index.NewMetrics(reg)
		}
		idx, err := index.Open(ctx, index.Config{
			Dir:       settings.IndexDir,
			Embedder:  emb,
			BatchSize: settings.BatchSize,
			Logger:    log,
			Metrics:   metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open index in %s: %w", settings.IndexDir, err)
		}
		p.index, p.ping = idx, idx.Ping
	}
	return p, nil
}

// ingestionPipeline builds the load → chunk → index pipeline over p.
func (p *pipeline) ingestionPipeline(log *slog.Logger, reg prometheus.Registerer) (*ingestion.Pipeline, error) {
	splitter, err := chunker.New(chunker.Config{
		Separator:    p.settings.Separator,
		ChunkSize:    p.settings.ChunkSize,
		ChunkOverlap: p.settings.ChunkOverlap,
	})
	if err != nil {
		return nil, err
	}
	var metrics *ingestion.Metrics
	if reg != nil {
		metrics = ingestion.NewMetrics(reg)
	}
	return ingestion.NewPipeline(loader.NewPDFLoader(), splitter, p.index, ingestion.Config{
		Logger:  log,
		Metrics: metrics,
	})
}

// answerService builds the retriever + chat model service over p. topK <= 0
// uses the configured DOCQA_TOP_K.
func (p *pipeline) answerService(ctx context.Context, log *slog.Logger, topK int) (*answer.Service, error) {
	retriever, err := rag.NewRetriever(p.embedder, p.index, p.settings.TopK)
	if err != nil {
		return nil, err
	}

	providerCfg := provider.ConfigFromEnv()
	chatModel, err := provider.New(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised",
		slog.String("provider", string(providerCfg.Backend)),
		slog.String("model", providerCfg.Model()),
	)

	synth, err := answer.NewSynthesizer(chatModel, answer.Config{
		MaxContextTokens: p.settings.MaxContextTokens,
		Logger:           log,
	})
	if err != nil {
		return nil, err
	}
	return answer.NewService(retriever, synth, topK)
}

// retrieverOnly builds a retriever without a chat model, for
// `docqa ask --retrieve-only`.
func (p *pipeline) retrieverOnly(topK int) (*answer.Service, error) {
	retriever, err := rag.NewRetriever(p.embedder, p.index, p.settings.TopK)
	if err != nil {
		return nil, err
	}
	return answer.NewService(retriever, noGenerator{}, topK)
}

// noGenerator rejects generation; used where only retrieval is wanted.
type noGenerator struct{}

func (noGenerator) Answer(context.Context, answer.Request) (answer.Response, error) {
	return answer.Response{}, fmt.Errorf("answer generation is disabled")
}

// pingers returns the readiness probes for `docqa serve`: the index backend
// first, then the embedder.
func (p *pipeline) pingers() []server.Pinger {
	name := "index"
	if p.settings.IndexBackend == config.BackendQdrant {
		name = "qdrant"
	}
	return []server.Pinger{
		server.NewPinger(name, p.ping),
		server.NewPinger("embedder", p.embedder.Ping),
	}
}
