package commands

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/ingestion"
	"github.com/54b3r/docqa-go/internal/logging"
)

// NewIngestCmd constructs the `docqa ingest` command, which loads PDF files
// into the index as a single batch.
func NewIngestCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ingest [file.pdf ...]",
		Short: "Add PDF documents to the index",
		Long: `Load PDF files, split them into overlapping chunks, embed the chunks and
append them to the index as one batch.

Files that cannot be read are reported and skipped. An embedding or storage
failure aborts the whole batch and leaves the index unchanged.

Environment variables:
  DOCQA_INDEX_BACKEND  local or qdrant (default: local)
  DOCQA_INDEX_DIR      Local index directory (default: db)
  DOCQA_CHUNK_SIZE     Maximum chunk length in characters (default: 650)
  DOCQA_CHUNK_OVERLAP  Characters shared by adjacent chunks (default: 80)
  EMBEDDING_PROVIDER   ollama, openai, azure or hash (default: MODEL_PROVIDER)

Examples:
  docqa ingest handbook.pdf contract.pdf
  docqa ingest --dir ./docs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			var sources []ingestion.Source
			for _, a := range args {
				sources = append(sources, ingestion.Source{Path: a})
			}
			if dir != "" {
				found, err := ingestion.ScanDir(dir)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				sources = append(sources, found...)
			}
			if len(sources) == 0 {
				return fmt.Errorf("ingest: at least one PDF path or --dir is required")
			}

			p, err := buildPipeline(ctx, log, nil)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = p.Close() }()

			ingest, err := p.ingestionPipeline(log, nil)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			report, err := ingest.Ingest(ctx, sources, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			printReport(cmd, report)
			log.Info("ingestion complete", slog.Int("sources", len(sources)), slog.Int("chunks", report.Added))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Ingest every *.pdf directly under this directory")

	return cmd
}

// printReport writes a short human summary of an ingestion batch.
func printReport(cmd *cobra.Command, r *ingestion.Report) {
	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(out, "%s %d of %d file(s) loaded, %d chunk(s) indexed\n",
		green("✔"), r.Loaded, r.Files, r.Added)
	if r.BatchID != "" {
		fmt.Fprintf(out, "  batch %s\n", r.BatchID)
	}
	for _, f := range r.Failed {
		fmt.Fprintf(out, "%s %s: %s\n", red("✘"), f.Name, f.Err)
	}
}
