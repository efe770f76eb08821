package rag

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

// fakeEmbedder returns a fixed vector per call and counts invocations.
type fakeEmbedder struct {
	calls atomic.Int32
	vec   []float32
	err   error
	extra bool
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	if f.extra {
		out = append(out, f.vec)
	}
	return out, nil
}

// fakeIndex records the arguments of the last Search.
type fakeIndex struct {
	count   int
	results []Result
	gotK    int
	gotVec  []float32
}

func (f *fakeIndex) Add(context.Context, []Chunk) (AddResult, error) { return AddResult{}, nil }
func (f *fakeIndex) Count(context.Context) (int, error)              { return f.count, nil }
func (f *fakeIndex) Close() error                                    { return nil }
func (f *fakeIndex) Search(_ context.Context, q []float32, k int) ([]Result, error) {
	f.gotK, f.gotVec = k, q
	return f.results, nil
}

func TestRetrieve_EmptyIndexReturnsNoIndex(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{vec: []float32{1, 0}}
	r, err := NewRetriever(emb, &fakeIndex{}, 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	_, err = r.Retrieve(context.Background(), "what is in the report?", 3)
	if !errors.Is(err, ErrNoIndex) {
		t.Fatalf("expected ErrNoIndex, got %v", err)
	}
	var nie NoIndexError
	if !errors.As(err, &nie) {
		t.Errorf("errors.As(NoIndexError) failed for %v", err)
	}
	if got := emb.calls.Load(); got != 0 {
		t.Errorf("embedder called %d times on an empty index, want 0", got)
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{count: 10, results: []Result{{ID: 1, Score: 0.9}}}
	emb := &fakeEmbedder{vec: []float32{0.5, 0.5}}
	r, _ := NewRetriever(emb, idx, 0)

	res, err := r.Retrieve(context.Background(), "q", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if idx.gotK != DefaultTopK {
		t.Errorf("k = %d, want %d", idx.gotK, DefaultTopK)
	}
	if len(res) != 1 || res[0].ID != 1 {
		t.Errorf("unexpected results %+v", res)
	}
	if emb.calls.Load() != 1 {
		t.Errorf("embedder called %d times, want exactly 1", emb.calls.Load())
	}
}

func TestRetrieve_ExplicitK(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{count: 10}
	r, _ := NewRetriever(&fakeEmbedder{vec: []float32{1}}, idx, 4)
	if _, err := r.Retrieve(context.Background(), "q", 7); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if idx.gotK != 7 {
		t.Errorf("k = %d, want 7", idx.gotK)
	}
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{count: 1}
	r, _ := NewRetriever(&fakeEmbedder{err: errors.New("connection refused")}, idx, 4)

	_, err := r.Retrieve(context.Background(), "q", 1)
	var ee *EmbeddingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EmbeddingError, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("cause missing from %q", err)
	}
	if idx.gotVec != nil {
		t.Error("index searched despite embedding failure")
	}
}

func TestRetrieve_WrongVectorCount(t *testing.T) {
	t.Parallel()

	r, _ := NewRetriever(&fakeEmbedder{vec: []float32{1}, extra: true}, &fakeIndex{count: 1}, 4)
	_, err := r.Retrieve(context.Background(), "q", 1)
	var ee *EmbeddingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EmbeddingError, got %v", err)
	}
}

func TestNewRetriever_NilArgs(t *testing.T) {
	t.Parallel()
	if _, err := NewRetriever(nil, &fakeIndex{}, 1); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewRetriever(&fakeEmbedder{}, nil, 1); err == nil {
		t.Error("expected error for nil index")
	}
}
