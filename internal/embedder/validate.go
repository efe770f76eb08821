package embedder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// requirement is one setting a backend cannot start without. Any of the
// listed variables satisfies it.
type requirement struct {
	what string
	envs []string
}

var backendRequirements = map[string][]requirement{
	"ollama": nil,
	"hash":   nil,
	"openai": {
		{what: "OpenAI API key", envs: []string{"EMBEDDING_API_KEY", "OPENAI_API_KEY"}},
	},
	"azure": {
		{what: "Azure API key", envs: []string{"EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY"}},
		{what: "Azure endpoint", envs: []string{"EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT"}},
	},
}

// embeddingModelDims lists well-known embedding models and the vector width
// they produce. Used only for diagnostics.
var embeddingModelDims = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// chatModelFragments match generation models that are often pasted into
// EMBEDDING_MODEL by mistake.
var chatModelFragments = []string{
	"gpt-", "o1", "o3", "llama", "mistral", "mixtral", "gemma", "phi",
	"claude", "command-r", "deepseek", "qwen", "gemini",
}

// looksLikeChatModel reports whether model resembles a generation model.
// Any name containing "embed" or listed in embeddingModelDims is accepted.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	if strings.Contains(lower, "embed") {
		return false
	}
	if _, ok := embeddingModelDims[strings.SplitN(lower, ":", 2)[0]]; ok {
		return false
	}
	for _, frag := range chatModelFragments {
		if strings.HasPrefix(lower, frag) || strings.Contains(lower, "/"+frag) {
			return true
		}
	}
	return false
}

// ValidateConfig checks the embedding settings before the embedder is built.
// Every missing required setting is reported in one joined error. Settings
// that are legal but likely wrong only produce warnings on log.
func ValidateConfig(log *slog.Logger) error {
	backend := Backend()

	reqs, known := backendRequirements[backend]
	if !known {
		return fmt.Errorf("embedder: unsupported embedding backend %q (valid: ollama, openai, azure, hash)", backend)
	}

	var errs []error
	for _, r := range reqs {
		if firstEnv(r.envs...) == "" {
			errs = append(errs, fmt.Errorf("embedder: no %s found, set %s", r.what, strings.Join(r.envs, " or ")))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if os.Getenv("EMBEDDING_PROVIDER") == "" && backend != "ollama" {
		log.Warn("embedder: EMBEDDING_PROVIDER is not set, inheriting MODEL_PROVIDER",
			slog.String("backend", backend),
			slog.String("hint", "pin EMBEDDING_PROVIDER; switching backends later means re-ingesting every document"),
		)
	}

	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		return nil
	}
	if looksLikeChatModel(model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model",
			slog.String("model", model),
			slog.String("hint", "use an embedding model such as nomic-embed-text or text-embedding-3-small"),
		)
	} else if dim, ok := embeddingModelDims[strings.SplitN(strings.ToLower(model), ":", 2)[0]]; ok {
		log.Debug("embedder: known embedding model", slog.String("model", model), slog.Int("dimension", dim))
	}
	return nil
}
