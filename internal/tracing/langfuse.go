// Package tracing sends eino model callbacks to Langfuse when it is
// configured. Every generation of the answer step becomes a trace named
// "docqa" tagged with the binary version.
package tracing

import (
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"

	"github.com/54b3r/docqa-go/internal/version"
)

// defaultHost is used when LANGFUSE_HOST is unset.
const defaultHost = "http://localhost:3000"

// ConfigFromEnv builds the Langfuse config from LANGFUSE_PUBLIC_KEY,
// LANGFUSE_SECRET_KEY and LANGFUSE_HOST. ok is false unless both keys are set.
func ConfigFromEnv() (cfg *langfuse.Config, ok bool) {
	publicKey := os.Getenv("LANGFUSE_PUBLIC_KEY")
	secretKey := os.Getenv("LANGFUSE_SECRET_KEY")
	if publicKey == "" || secretKey == "" {
		return nil, false
	}
	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = defaultHost
	}
	return &langfuse.Config{
		Host:      host,
		PublicKey: publicKey,
		SecretKey: secretKey,
		Name:      "docqa",
		Release:   version.Version,
	}, true
}

// Setup returns the Langfuse callback handler and its flush function. ok is
// false, and both other values nil, when Langfuse is not configured.
func Setup() (handler callbacks.Handler, flush func(), ok bool) {
	cfg, ok := ConfigFromEnv()
	if !ok {
		return nil, nil, false
	}
	handler, flush = langfuse.NewLangfuseHandler(cfg)
	return handler, flush, true
}

// Enable registers the handler globally so every eino component reports to
// Langfuse, and returns the flush function to defer. When Langfuse is not
// configured it logs that at debug level and returns a no-op.
func Enable(log *slog.Logger) func() {
	handler, flush, ok := Setup()
	if !ok {
		log.Debug("tracing: langfuse disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY or LANGFUSE_SECRET_KEY not set"))
		return func() {}
	}
	callbacks.AppendGlobalHandlers(handler)
	log.Info("tracing: langfuse enabled", slog.String("host", os.Getenv("LANGFUSE_HOST")))
	return flush
}
