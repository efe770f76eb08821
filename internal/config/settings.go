package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Defaults for the retrieval pipeline.
const (
	DefaultIndexDir         = "db"
	DefaultDocsDir          = "DocumentosPDF"
	DefaultChunkSize        = 650
	DefaultChunkOverlap     = 80
	DefaultSeparator        = "\n"
	DefaultTopK             = 4
	DefaultBatchSize        = 64
	DefaultMaxContextTokens = 3000
	DefaultMaxUploadMB      = 64
)

// Index backends accepted by DOCQA_INDEX_BACKEND.
const (
	BackendLocal  = "local"
	BackendQdrant = "qdrant"
)

// Settings is the resolved, typed view of the pipeline environment.
type Settings struct {
	// IndexBackend is BackendLocal or BackendQdrant.
	IndexBackend string
	// IndexDir is where the local index persists.
	IndexDir string
	// BatchSize is the number of chunks per embedder call.
	BatchSize int
	// DocsDir is bootstrapped at server start.
	DocsDir string
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int
	// ChunkOverlap is the number of characters shared by adjacent chunks.
	ChunkOverlap int
	// Separator is the preferred split point, escape-decoded.
	Separator string
	// TopK is the default number of chunks retrieved per question.
	TopK int
	// MaxContextTokens caps the context passed to the chat model.
	MaxContextTokens int
	// MaxUploadMB caps multipart upload bodies.
	MaxUploadMB int
}

// SettingsFromEnv reads Settings from DOCQA_* variables and validates them.
func SettingsFromEnv() (Settings, error) {
	s := Settings{
		IndexBackend:     strings.ToLower(GetEnvOrDefault("DOCQA_INDEX_BACKEND", BackendLocal)),
		IndexDir:         GetEnvOrDefault("DOCQA_INDEX_DIR", DefaultIndexDir),
		BatchSize:        GetEnvInt("DOCQA_BATCH_SIZE", DefaultBatchSize),
		DocsDir:          GetEnvOrDefault("DOCQA_DOCS_DIR", DefaultDocsDir),
		ChunkSize:        GetEnvInt("DOCQA_CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap:     GetEnvInt("DOCQA_CHUNK_OVERLAP", DefaultChunkOverlap),
		TopK:             GetEnvInt("DOCQA_TOP_K", DefaultTopK),
		MaxContextTokens: GetEnvInt("DOCQA_MAX_CONTEXT_TOKENS", DefaultMaxContextTokens),
		MaxUploadMB:      GetEnvInt("DOCQA_MAX_UPLOAD_MB", DefaultMaxUploadMB),
	}

	sep, err := decodeSeparator(GetEnvOrDefault("DOCQA_CHUNK_SEPARATOR", `\n`))
	if err != nil {
		return Settings{}, err
	}
	s.Separator = sep

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings for values the pipeline cannot work with.
func (s Settings) Validate() error {
	switch s.IndexBackend {
	case BackendLocal, BackendQdrant:
	default:
		return fmt.Errorf("config: unsupported DOCQA_INDEX_BACKEND %q (want %s or %s)", s.IndexBackend, BackendLocal, BackendQdrant)
	}
	if s.ChunkSize <= 0 {
		return fmt.Errorf("config: DOCQA_CHUNK_SIZE must be positive, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("config: DOCQA_CHUNK_OVERLAP must be in [0, %d), got %d", s.ChunkSize, s.ChunkOverlap)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("config: DOCQA_TOP_K must be positive, got %d", s.TopK)
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("config: DOCQA_BATCH_SIZE must be positive, got %d", s.BatchSize)
	}
	return nil
}

// decodeSeparator interprets Go escape sequences so a separator such as "\n"
// can be written in YAML or a shell without a literal newline.
func decodeSeparator(raw string) (string, error) {
	if raw == "" {
		return DefaultSeparator, nil
	}
	if !strings.Contains(raw, `\`) {
		return raw, nil
	}
	s, err := strconv.Unquote(`"` + strings.ReplaceAll(raw, `"`, `\"`) + `"`)
	if err != nil {
		return "", fmt.Errorf("config: invalid DOCQA_CHUNK_SEPARATOR %q: %w", raw, err)
	}
	return s, nil
}

// GetEnvOrDefault returns the env var value or fallback when unset or empty.
func GetEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt returns the env var parsed as an int, or fallback when unset or
// not a valid integer.
func GetEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

// GetEnvFloat32 returns the env var parsed as a float32, or fallback.
func GetEnvFloat32(key string, fallback float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}
