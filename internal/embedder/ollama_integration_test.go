//go:build integration

package embedder

import (
	"context"
	"os"
	"slices"
	"testing"
	"time"
)

// TestOllamaEmbedder_Integration calls a locally running Ollama instance.
//
// Prerequisites:
//
//	ollama pull nomic-embed-text
//	ollama serve
//
// Run with:
//
//	go test -tags=integration -run TestOllamaEmbedder_Integration ./internal/embedder/
func TestOllamaEmbedder_Integration(t *testing.T) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = defaultOllamaModel
	}

	emb, err := NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model})
	if err != nil {
		t.Fatalf("NewOllamaEmbedder: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := emb.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v (is ollama serve running at %s?)", err, host)
	}

	texts := []string{
		"The lease term is twelve months starting on the first of March.",
		"Quarterly revenue grew eight percent across European markets.",
	}
	embeddings, err := emb.Embed(ctx, texts)
	if err != nil {
		t.Fatalf("Embed() failed: %v\n\nEnsure %q is pulled:\n  ollama pull %s", err, model, model)
	}
	if len(embeddings) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d", len(texts), len(embeddings))
	}
	if len(embeddings[0]) == 0 || len(embeddings[0]) != len(embeddings[1]) {
		t.Fatalf("inconsistent dimensions: %d vs %d", len(embeddings[0]), len(embeddings[1]))
	}
	if slices.Equal(embeddings[0], embeddings[1]) {
		t.Error("distinct texts produced identical vectors")
	}
	t.Logf("model=%s dim=%d", model, len(embeddings[0]))
}
