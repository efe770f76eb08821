package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
)

func TestSanitiseKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"secret set", "OPENAI_API_KEY", "sk-abc123", "set"},
		{"secret unset", "OPENAI_API_KEY", "", "unset"},
		{"server token", "DOCQA_API_KEY", "tok", "set"},
		{"plain value", "MODEL_PROVIDER", "azure", "azure"},
		{"plain unset", "DOCQA_INDEX_DIR", "", "unset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitiseKey(tt.key, tt.value); got != tt.want {
				t.Errorf("SanitiseKey(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
			}
		})
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()
	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
	if got := sanitiseConfigPath("/tmp/config.yaml"); got != "/tmp/config.yaml" {
		t.Errorf("expected '/tmp/config.yaml', got %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		p := home + "/.docqa/config.yaml"
		if got := sanitiseConfigPath(p); got != "~/.docqa/config.yaml" {
			t.Errorf("expected '~/.docqa/config.yaml', got %q", got)
		}
	}
}

func TestLogCommandStart_RedactsSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-very-secret")
	t.Setenv("DOCQA_INDEX_DIR", "/var/lib/docqa")

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	LogCommandStart(context.Background(), log, "ingest", "")

	if bytes.Contains(buf.Bytes(), []byte("sk-very-secret")) {
		t.Fatalf("secret value leaked into audit log: %s", buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("audit line is not JSON: %v", err)
	}
	if rec["command"] != "ingest" {
		t.Errorf("command = %v, want ingest", rec["command"])
	}
	if rec["OPENAI_API_KEY"] != "set" {
		t.Errorf("OPENAI_API_KEY = %v, want set", rec["OPENAI_API_KEY"])
	}
	if rec["DOCQA_INDEX_DIR"] != "/var/lib/docqa" {
		t.Errorf("DOCQA_INDEX_DIR = %v", rec["DOCQA_INDEX_DIR"])
	}
	if rec["config_file"] != "none" {
		t.Errorf("config_file = %v, want none", rec["config_file"])
	}
}
