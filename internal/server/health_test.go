package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type fakePinger struct {
	name  string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakePinger) Name() string { return f.name }

func (f *fakePinger) Ping(ctx context.Context) error {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func getReady(t *testing.T, pingers ...Pinger) (int, readyResponse) {
	t.Helper()
	s := newTestServer()
	s.pingers = pingers

	w := httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return w.Code, resp
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer()
	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestHandleReady(t *testing.T) {
	t.Parallel()

	down := errors.New("connection refused")
	cases := []struct {
		name       string
		pingers    []Pinger
		wantStatus int
		wantFailed []string
	}{
		{
			name:       "no pingers",
			wantStatus: http.StatusOK,
		},
		{
			name:       "all healthy",
			pingers:    []Pinger{&fakePinger{name: "index"}, &fakePinger{name: "embedder"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "embedder down",
			pingers:    []Pinger{&fakePinger{name: "index"}, &fakePinger{name: "embedder", err: down}},
			wantStatus: http.StatusServiceUnavailable,
			wantFailed: []string{"embedder"},
		},
		{
			name:       "everything down",
			pingers:    []Pinger{&fakePinger{name: "qdrant", err: down}, &fakePinger{name: "embedder", err: down}},
			wantStatus: http.StatusServiceUnavailable,
			wantFailed: []string{"qdrant", "embedder"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			code, resp := getReady(t, tc.pingers...)

			if code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", code, tc.wantStatus)
			}
			if resp.Ready != (tc.wantStatus == http.StatusOK) {
				t.Errorf("ready = %v", resp.Ready)
			}
			if len(resp.Checks) != len(tc.pingers) {
				t.Fatalf("got %d checks, want %d", len(resp.Checks), len(tc.pingers))
			}
			var failed []string
			for i, c := range resp.Checks {
				if c.Name != tc.pingers[i].Name() {
					t.Errorf("check %d is %q, want pinger order", i, c.Name)
				}
				if !c.OK {
					failed = append(failed, c.Name)
					if c.Error == "" {
						t.Errorf("check %q failed without an error", c.Name)
					}
				}
			}
			if strings.Join(failed, ",") != strings.Join(tc.wantFailed, ",") {
				t.Errorf("failed = %v, want %v", failed, tc.wantFailed)
			}
		})
	}
}

func TestHandleReady_ProbesRunConcurrently(t *testing.T) {
	t.Parallel()

	a := &fakePinger{name: "index", delay: 200 * time.Millisecond}
	b := &fakePinger{name: "embedder", delay: 200 * time.Millisecond}
	c := &fakePinger{name: "qdrant", delay: 200 * time.Millisecond}

	start := time.Now()
	code, _ := getReady(t, a, b, c)
	elapsed := time.Since(start)

	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if elapsed >= 550*time.Millisecond {
		t.Errorf("probes took %v, expected them to overlap", elapsed)
	}
	for _, p := range []*fakePinger{a, b, c} {
		if p.calls.Load() != 1 {
			t.Errorf("%s pinged %d times", p.name, p.calls.Load())
		}
	}
}

func TestNewPinger_PrefixesName(t *testing.T) {
	t.Parallel()

	p := NewPinger("qdrant", func(context.Context) error { return errors.New("dial tcp: refused") })
	if p.Name() != "qdrant" {
		t.Errorf("Name() = %q", p.Name())
	}
	err := p.Ping(context.Background())
	if err == nil || !strings.HasPrefix(err.Error(), "qdrant unreachable") {
		t.Errorf("Ping() = %v", err)
	}
	if NewPinger("index", func(context.Context) error { return nil }).Ping(context.Background()) != nil {
		t.Error("healthy pinger returned an error")
	}
}
