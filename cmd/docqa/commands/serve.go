package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/config"
	"github.com/54b3r/docqa-go/internal/logging"
	"github.com/54b3r/docqa-go/internal/server"
	"github.com/54b3r/docqa-go/internal/tracing"
)

// NewServeCmd constructs the `docqa serve` command, which ingests the docs
// directory into an empty index and starts the HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docqa HTTP API",
		Long: `Start the docqa HTTP server.

On startup every PDF in DOCQA_DOCS_DIR is ingested when the index is empty.
The server then accepts uploads and questions:

  POST /api/upload   multipart "files" field, appended to the index
  POST /api/query    {"question": "..."} -> {"response": "...", "sources": [...]}
  GET  /api/health   liveness
  GET  /api/ready    index, embedder and Qdrant probes
  GET  /metrics      Prometheus metrics

Set DOCQA_API_KEY to require a Bearer token on /api/query and /api/upload.

Examples:
  docqa serve
  docqa serve --port 9090
  DOCQA_INDEX_BACKEND=qdrant docqa serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.FromContext(ctx)
			if !cmd.Flags().Changed("host") {
				host = config.GetEnvOrDefault("DOCQA_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = config.GetEnvInt("DOCQA_PORT", port)
			}
			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			flush := tracing.Enable(log)
			defer flush()

			reg := prometheus.DefaultRegisterer
			p, err := buildPipeline(ctx, log, reg)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = p.Close() }()

			ingest, err := p.ingestionPipeline(log, reg)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			if report, err := ingest.Bootstrap(ctx, p.settings.DocsDir); err != nil {
				return fmt.Errorf("serve: startup ingestion of %s: %w", p.settings.DocsDir, err)
			} else if report != nil {
				log.Info("startup ingestion finished",
					slog.String("dir", p.settings.DocsDir),
					slog.Int("loaded", report.Loaded),
					slog.Int("chunks", report.Added),
				)
			}

			svc, err := p.answerService(ctx, log, 0)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			srv, err := server.New(svc, ingest, &server.Config{
				Host:           host,
				Port:           port,
				Logger:         log,
				Pingers:        p.pingers(),
				APIKey:         os.Getenv("DOCQA_API_KEY"),
				MaxUploadBytes: int64(p.settings.MaxUploadMB) << 20,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (env: DOCQA_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "TCP port to listen on (env: DOCQA_PORT)")

	return cmd
}
