package rag

import (
	"context"
	"slices"
	"testing"
	"time"
)

func TestTopK_TiesAcrossCutoffKeepLowestIDs(t *testing.T) {
	t.Parallel()

	// Qdrant returned the tie window in its own order; ids 2 and 3 tie with
	// the later id 7 at the cutoff.
	window := []Result{
		{ID: 7, Score: 0.5},
		{ID: 1, Score: 0.9},
		{ID: 3, Score: 0.5},
		{ID: 2, Score: 0.5},
		{ID: 9, Score: 0.1},
	}
	got := topK(window, 3)

	var ids []uint64
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if want := []uint64{1, 2, 3}; !slices.Equal(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestTopK_ShortWindow(t *testing.T) {
	t.Parallel()

	got := topK([]Result{{ID: 2, Score: 0.4}, {ID: 1, Score: 0.8}}, 5)
	if len(got) != 2 || got[0].ID != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestTieWindow(t *testing.T) {
	t.Parallel()

	for k, want := range map[int]int{1: 9, 4: 12, 8: 16, 20: 40} {
		if got := tieWindow(k); got != want {
			t.Errorf("tieWindow(%d) = %d, want %d", k, got, want)
		}
	}
}

func TestQdrantIndex_ReadsDoNotWaitForAdd(t *testing.T) {
	t.Parallel()

	// An Add in progress holds mu for its whole embedding and upsert.
	q := &QdrantIndex{}
	q.mu.Lock()
	defer q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if res, err := q.Search(context.Background(), []float32{1, 0}, 3); err != nil || len(res) != 0 {
			t.Errorf("Search on empty collection = %v, %v", res, err)
		}
		if n, err := q.Count(context.Background()); err != nil || n != 0 {
			t.Errorf("Count on empty collection = %d, %v", n, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Search and Count blocked behind Add")
	}
}
