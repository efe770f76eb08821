package tracing

import (
	"io"
	"log/slog"
	"testing"

	"github.com/54b3r/docqa-go/internal/version"
)

func TestConfigFromEnv(t *testing.T) {
	cases := []struct {
		name     string
		public   string
		secret   string
		host     string
		wantOK   bool
		wantHost string
	}{
		{name: "no keys"},
		{name: "public key only", public: "pk"},
		{name: "secret key only", secret: "sk"},
		{name: "default host", public: "pk", secret: "sk", wantOK: true, wantHost: defaultHost},
		{name: "explicit host", public: "pk", secret: "sk", host: "https://cloud.langfuse.com", wantOK: true, wantHost: "https://cloud.langfuse.com"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("LANGFUSE_PUBLIC_KEY", tc.public)
			t.Setenv("LANGFUSE_SECRET_KEY", tc.secret)
			t.Setenv("LANGFUSE_HOST", tc.host)

			cfg, ok := ConfigFromEnv()
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				if cfg != nil {
					t.Error("config returned while disabled")
				}
				return
			}
			if cfg.Host != tc.wantHost || cfg.Name != "docqa" || cfg.Release != version.Version {
				t.Errorf("cfg = {Host:%q Name:%q Release:%q}", cfg.Host, cfg.Name, cfg.Release)
			}
		})
	}
}

func TestEnable_DisabledIsNoop(t *testing.T) {
	t.Setenv("LANGFUSE_PUBLIC_KEY", "")
	t.Setenv("LANGFUSE_SECRET_KEY", "")

	handler, flush, ok := Setup()
	if ok || handler != nil || flush != nil {
		t.Fatalf("Setup() enabled without keys")
	}
	flush = Enable(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if flush == nil {
		t.Fatal("Enable returned nil flush")
	}
	flush()
}
