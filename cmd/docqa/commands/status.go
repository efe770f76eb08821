package commands

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/config"
	"github.com/54b3r/docqa-go/internal/logging"
	"github.com/54b3r/docqa-go/internal/store"
)

// NewStatusCmd constructs the `docqa status` command, which summarises the
// index without contacting the embedding provider.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what the index contains",
		Long: `Print the index backend, entry count and vector dimension.

For the local backend the batches and distinct source documents recorded in
DOCQA_INDEX_DIR are listed as well. For Qdrant the point count is read from
the collection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)
			out := cmd.OutOrStdout()
			bold := color.New(color.Bold).SprintFunc()

			settings, err := config.SettingsFromEnv()
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}

			if settings.IndexBackend == config.BackendQdrant {
				p, err := buildPipeline(ctx, log, nil)
				if err != nil {
					return fmt.Errorf("status: %w", err)
				}
				defer func() { _ = p.Close() }()
				n, err := p.index.Count(ctx)
				if err != nil {
					return fmt.Errorf("status: %w", err)
				}
				fmt.Fprintf(out, "%s qdrant\n%s %d\n", bold("backend:"), bold("entries:"), n)
				return nil
			}

			s, err := store.Open(settings.IndexDir)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			defer func() { _ = s.Close() }()

			st, err := s.Stats(ctx)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			fmt.Fprintf(out, "%s local (%s)\n", bold("backend:"), s.Path())
			fmt.Fprintf(out, "%s %d\n", bold("entries:"), st.Entries)
			fmt.Fprintf(out, "%s %d\n", bold("dimension:"), st.Dimension)
			fmt.Fprintf(out, "%s %d\n", bold("batches:"), st.Batches)
			fmt.Fprintf(out, "%s %d\n", bold("sources:"), st.Sources)
			if !st.LastBatch.IsZero() {
				fmt.Fprintf(out, "%s %s\n", bold("last batch:"), st.LastBatch.Local().Format(time.RFC3339))
			}
			return nil
		},
	}
}
