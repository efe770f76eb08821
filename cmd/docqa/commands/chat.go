package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/logging"
	"github.com/54b3r/docqa-go/internal/tracing"
	"github.com/54b3r/docqa-go/internal/tui"
)

// NewChatCmd constructs the `docqa chat` command, an interactive terminal
// session over the indexed documents.
func NewChatCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively in the terminal",
		Long: `Open a terminal UI for asking a series of questions about the indexed
documents. Each answer lists the pages it was drawn from.

Logs go to stderr; set LOG_LEVEL=error to keep them out of the way.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			p, err := buildPipeline(ctx, log, nil)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer func() { _ = p.Close() }()

			flush := tracing.Enable(log)
			defer flush()

			svc, err := p.answerService(ctx, log, topK)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}

			n, err := p.index.Count(ctx)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			summary := fmt.Sprintf("%s index, %d chunk(s)", p.settings.IndexBackend, n)

			prog := tea.NewProgram(tui.New(ctx, svc, summary), tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := prog.Run(); err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (default: DOCQA_TOP_K)")

	return cmd
}
