package embedder

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/54b3r/docqa-go/internal/config"
	"github.com/54b3r/docqa-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"
)

// Backend returns the effective embedding backend name: EMBEDDING_PROVIDER,
// else MODEL_PROVIDER, else "ollama".
func Backend() string {
	if b := os.Getenv("EMBEDDING_PROVIDER"); b != "" {
		return strings.ToLower(b)
	}
	return strings.ToLower(config.GetEnvOrDefault("MODEL_PROVIDER", "ollama"))
}

// NewFromEnv constructs the configured embedder wrapped in retry.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER — if unset, inherits MODEL_PROVIDER (default: ollama)
//  2. Per-backend credentials are inherited from the chat provider's env vars
//  3. EMBEDDING_MODEL — overrides the default model for the resolved backend
//  4. EMBEDDING_API_KEY — overrides the inherited API key
//  5. EMBEDDING_ENDPOINT — overrides the inherited endpoint
//  6. EMBEDDING_DIMENSIONS — requested vector size (openai/azure/hash)
//  7. EMBEDDING_MAX_ATTEMPTS — total attempts per embed call (default: 4)
func NewFromEnv(log *slog.Logger) (*Retrying, error) {
	base, err := newBackend(Backend())
	if err != nil {
		return nil, err
	}
	return WithRetry(base, RetryConfig{
		MaxAttempts: config.GetEnvInt("EMBEDDING_MAX_ATTEMPTS", 4),
		Logger:      log,
	}), nil
}

// newBackend builds the unwrapped embedder for backend.
func newBackend(backend string) (rag.Embedder, error) {
	switch backend {
	case "ollama":
		host := os.Getenv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = config.GetEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		}
		return NewOllamaEmbedder(&OllamaConfig{
			Host:  host,
			Model: config.GetEnvOrDefault("EMBEDDING_MODEL", defaultOllamaModel),
		})

	case "openai":
		apiKey := firstEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    config.GetEnvOrDefault("EMBEDDING_ENDPOINT", "https://api.openai.com/v1"),
			APIKey:     apiKey,
			Model:      config.GetEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel),
			Dimensions: config.GetEnvInt("EMBEDDING_DIMENSIONS", 0),
		}), nil

	case "azure":
		apiKey := firstEnv("EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		endpoint := firstEnv("EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
		model := config.GetEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel)
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    endpoint,
			APIKey:     apiKey,
			Model:      model,
			Dimensions: config.GetEnvInt("EMBEDDING_DIMENSIONS", 0),
			Azure:      true,
			Deployment: config.GetEnvOrDefault("EMBEDDING_DEPLOYMENT", model),
			APIVersion: config.GetEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-10-21"),
		}), nil

	case "hash":
		return NewHashEmbedder(config.GetEnvInt("EMBEDDING_DIMENSIONS", DefaultHashDimensions)), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid: ollama, openai, azure, hash)", backend)
	}
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
