package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("DOCQA_ENV_FILE", "")

	path, err := Load("/nonexistent/path/config.yaml", slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: azure
  max_tokens: 1024
  temperature: 0.3
  azure:
    endpoint: https://my-resource.openai.azure.com
    deployment: gpt-4o
embedding:
  provider: ollama
  model: nomic-embed-text
index:
  backend: qdrant
  dir: /var/lib/docqa
ingest:
  docs_dir: /srv/pdfs
  chunk_size: 500
  chunk_overlap: 50
retrieval:
  top_k: 6
logging:
  level: debug
  format: text
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	envKeys := []string{
		"DOCQA_ENV_FILE",
		"MODEL_PROVIDER", "MODEL_MAX_TOKENS", "MODEL_TEMPERATURE",
		"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL",
		"DOCQA_INDEX_BACKEND", "DOCQA_INDEX_DIR", "DOCQA_DOCS_DIR",
		"DOCQA_CHUNK_SIZE", "DOCQA_CHUNK_OVERLAP", "DOCQA_TOP_K",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	loaded, err := Load(cfgPath, slog.Default())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"MODEL_PROVIDER":          "azure",
		"MODEL_MAX_TOKENS":        "1024",
		"MODEL_TEMPERATURE":       "0.3",
		"AZURE_OPENAI_ENDPOINT":   "https://my-resource.openai.azure.com",
		"AZURE_OPENAI_DEPLOYMENT": "gpt-4o",
		"EMBEDDING_PROVIDER":      "ollama",
		"EMBEDDING_MODEL":         "nomic-embed-text",
		"DOCQA_INDEX_BACKEND":     "qdrant",
		"DOCQA_INDEX_DIR":         "/var/lib/docqa",
		"DOCQA_DOCS_DIR":          "/srv/pdfs",
		"DOCQA_CHUNK_SIZE":        "500",
		"DOCQA_CHUNK_OVERLAP":     "50",
		"DOCQA_TOP_K":             "6",
		"LOG_LEVEL":               "debug",
		"LOG_FORMAT":              "text",
	}
	for k, want := range checks {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("model:\n  provider: ollama\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DOCQA_ENV_FILE", "")
	t.Setenv("MODEL_PROVIDER", "azure")

	if _, err := Load(cfgPath, slog.Default()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := os.Getenv("MODEL_PROVIDER"); got != "azure" {
		t.Errorf("MODEL_PROVIDER: expected env override %q, got %q", "azure", got)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "docqa.env")
	if err := os.WriteFile(envPath, []byte("OPENAI_API_KEY=sk-from-dotenv\nDOCQA_TOP_K=9\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DOCQA_ENV_FILE", envPath)
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("DOCQA_TOP_K", "3")

	if _, err := Load("/nonexistent/config.yaml", slog.Default()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := os.Getenv("OPENAI_API_KEY"); got != "sk-from-dotenv" {
		t.Errorf("OPENAI_API_KEY = %q, want value from env file", got)
	}
	if got := os.Getenv("DOCQA_TOP_K"); got != "3" {
		t.Errorf("DOCQA_TOP_K = %q, process env must win over env file", got)
	}
}

func TestLoad_MissingExplicitDotEnv(t *testing.T) {
	t.Setenv("DOCQA_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	_, err := Load("", slog.Default())
	if err == nil || !strings.Contains(err.Error(), "env file") {
		t.Fatalf("expected env file error, got %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCQA_ENV_FILE", "")

	if _, err := Load(cfgPath, slog.Default()); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestFloat32Str(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float32
		want string
	}{
		{0.0, ""},
		{0.2, "0.2"},
		{0.3, "0.3"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := float32Str(tt.in); got != tt.want {
			t.Errorf("float32Str(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
