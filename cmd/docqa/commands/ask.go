package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/logging"
	"github.com/54b3r/docqa-go/internal/rag"
	"github.com/54b3r/docqa-go/internal/tracing"
)

// NewAskCmd constructs the `docqa ask` command, which answers a single
// question from the indexed documents.
func NewAskCmd() *cobra.Command {
	var topK int
	var retrieveOnly bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the indexed documents",
		Long: `Retrieve the chunks most similar to the question and have the chat model
answer from them alone. The sources used are listed below the answer.

Examples:
  docqa ask "what is the notice period in the lease?"
  docqa ask -k 8 "summarise the warranty terms"
  docqa ask --retrieve-only "termination clause"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)
			question := strings.Join(args, " ")

			p, err := buildPipeline(ctx, log, nil)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = p.Close() }()

			out := cmd.OutOrStdout()

			if retrieveOnly {
				svc, err := p.retrieverOnly(topK)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				results, err := svc.Retrieve(ctx, question)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				printSources(out, results, true)
				return nil
			}

			flush := tracing.Enable(log)
			defer flush()

			svc, err := p.answerService(ctx, log, topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			ans, err := svc.Ask(ctx, question)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Fprintln(out, ans.Text)
			if len(ans.Sources) > 0 {
				fmt.Fprintln(out)
				printSources(out, ans.Sources, false)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (default: DOCQA_TOP_K)")
	cmd.Flags().BoolVar(&retrieveOnly, "retrieve-only", false, "Print the ranked chunks without calling the chat model")

	return cmd
}

// printSources lists results as "[n] source, page N (score)". With excerpts
// set the chunk text follows each line.
func printSources(out io.Writer, results []rag.Result, excerpts bool) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	if len(results) == 0 {
		fmt.Fprintln(out, faint("no matching chunks"))
		return
	}
	for i, r := range results {
		fmt.Fprintf(out, "%s %s, page %d %s\n",
			cyan(fmt.Sprintf("[%d]", i+1)), r.Chunk.Source, r.Chunk.Page, faint(fmt.Sprintf("(%.3f)", r.Score)))
		if excerpts {
			fmt.Fprintf(out, "    %s\n", strings.ReplaceAll(strings.TrimSpace(r.Chunk.Text), "\n", "\n    "))
		}
	}
}
