// Package commands defines all Cobra CLI commands for the docqa binary.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/audit"
	"github.com/54b3r/docqa-go/internal/config"
	"github.com/54b3r/docqa-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docqa",
		Short: "docqa — ask questions about your PDF documents",
		Long: `docqa indexes PDF documents and answers natural-language questions
about them, citing the pages it used.

Documents are split into overlapping chunks, embedded, and stored in a local
index (or Qdrant). Each question retrieves the most similar chunks and a chat
model answers from them alone.

Model and embedding providers are selected via environment variables, a .env
file, or a YAML config file (~/.docqa/config.yaml).
See 'docqa --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load .env and YAML config (env vars always override both).
			path, err := config.Load(configPath, logging.New())
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Rebuild the logger so LOG_LEVEL/LOG_FORMAT from config apply.
			log := logging.New()
			slog.SetDefault(log)
			ctx := logging.WithLogger(cmd.Context(), log)
			cmd.SetContext(ctx)

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(ctx, log, cmd.Name(), loadedConfigPath)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docqa/config.yaml)")

	root.AddCommand(
		NewIngestCmd(),
		NewAskCmd(),
		NewChatCmd(),
		NewServeCmd(),
		NewStatusCmd(),
		NewVersionCmd(),
	)

	return root
}
