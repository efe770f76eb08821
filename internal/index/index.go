// Package index implements the local vector index: an append-only set of
// chunk embeddings searched by cosine similarity and persisted through
// internal/store after every batch.
//
// Writers are serialised. Readers load an immutable snapshot through an
// atomic pointer, so Search never blocks on an in-flight Add and observes
// either the state before a batch or the state after its commit.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/54b3r/docqa-go/internal/rag"
	"github.com/54b3r/docqa-go/internal/store"
)

// DefaultBatchSize is the number of chunks per embedder call.
const DefaultBatchSize = 64

// Persister is the durable backing of the index.
type Persister interface {
	Load(ctx context.Context) (store.State, error)
	Commit(ctx context.Context, b store.Batch) error
	Close() error
}

// Config configures an Index.
type Config struct {
	// Dir is the directory holding index.db. Used by Open only.
	Dir string

	// Embedder embeds chunks on Add. Required.
	Embedder rag.Embedder

	// BatchSize is the number of chunks per embedder call.
	BatchSize int

	// Logger receives index events. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics, when non-nil, is updated on every Add and Search.
	Metrics *Metrics
}

// snapshot is an immutable view of the index. entries and units are parallel.
type snapshot struct {
	entries []store.Entry
	// units holds the unit-normalised vector of each entry.
	units [][]float64
	dim   int
}

// Index is the local VectorIndex.
type Index struct {
	persist   Persister
	embedder  rag.Embedder
	batchSize int
	log       *slog.Logger
	metrics   *Metrics

	// writeMu serialises Add and guards nextID.
	writeMu sync.Mutex
	nextID  uint64

	snap atomic.Pointer[snapshot]
}

var _ rag.VectorIndex = (*Index)(nil)

// Open opens the SQLite store under cfg.Dir and loads the index from it.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("index: directory must not be empty")
	}
	st, err := store.Open(cfg.Dir)
	if err != nil {
		return nil, &rag.PersistenceError{Op: "open", Err: err}
	}
	idx, err := New(ctx, st, cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return idx, nil
}

// New loads every persisted entry from p and rebuilds the search structure.
// Vectors are not re-embedded.
func New(ctx context.Context, p Persister, cfg Config) (*Index, error) {
	if p == nil {
		return nil, fmt.Errorf("index: persister must not be nil")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("index: embedder must not be nil")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	state, err := p.Load(ctx)
	if err != nil {
		return nil, &rag.PersistenceError{Op: "load", Err: err}
	}

	snap := &snapshot{
		entries: state.Entries,
		units:   make([][]float64, len(state.Entries)),
		dim:     state.Dimension,
	}
	idx := &Index{
		persist:   p,
		embedder:  cfg.Embedder,
		batchSize: cfg.BatchSize,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		nextID:    1,
	}
	for i, e := range state.Entries {
		snap.units[i] = unit(e.Vector)
		idx.nextID = max(idx.nextID, e.ID+1)
	}
	idx.snap.Store(snap)
	idx.metrics.setEntries(len(snap.entries))

	cfg.Logger.Info("index: loaded",
		slog.Int("entries", len(snap.entries)),
		slog.Int("dimension", snap.dim),
	)
	return idx, nil
}

// Add embeds chunks and commits them as one batch. On any error the index,
// in memory and on disk, is unchanged.
func (x *Index) Add(ctx context.Context, chunks []rag.Chunk) (rag.AddResult, error) {
	if len(chunks) == 0 {
		return rag.AddResult{}, nil
	}

	x.writeMu.Lock()
	defer x.writeMu.Unlock()

	cur := x.snap.Load()
	vectors, err := rag.EmbedChunks(ctx, x.embedder, chunks, x.batchSize, cur.dim)
	if err != nil {
		var dm *rag.DimensionMismatchError
		if errors.As(err, &dm) {
			x.metrics.add("dimension")
		} else {
			x.metrics.add("embedding")
		}
		return rag.AddResult{}, err
	}

	dim := cur.dim
	if dim == 0 {
		dim = len(vectors[0])
	}

	batch := store.Batch{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Dimension: dim,
		Entries:   make([]store.Entry, len(chunks)),
	}
	units := make([][]float64, len(chunks))
	first := x.nextID
	for i, c := range chunks {
		batch.Entries[i] = store.Entry{ID: first + uint64(i), Chunk: c, Vector: vectors[i]} //nolint:gosec // i is non-negative
		units[i] = unit(vectors[i])
	}

	if err := x.persist.Commit(ctx, batch); err != nil {
		x.metrics.add("persistence")
		var dm *rag.DimensionMismatchError
		if errors.As(err, &dm) {
			return rag.AddResult{}, err
		}
		return rag.AddResult{}, &rag.PersistenceError{Op: "commit", Err: err}
	}

	// Appending may reuse spare capacity of cur's slices; readers of cur
	// never look past its length.
	next := &snapshot{
		entries: append(cur.entries, batch.Entries...),
		units:   append(cur.units, units...),
		dim:     dim,
	}
	x.snap.Store(next)
	x.nextID = first + uint64(len(chunks))
	x.metrics.add("ok")
	x.metrics.setEntries(len(next.entries))

	x.log.Debug("index: batch committed",
		slog.String("batch_id", batch.ID),
		slog.Int("entries", len(chunks)),
		slog.Int("total", len(next.entries)),
	)

	return rag.AddResult{
		BatchID: batch.ID,
		FirstID: first,
		LastID:  x.nextID - 1,
		Added:   len(chunks),
	}, nil
}

// Search ranks every entry by cosine similarity to query and returns the top
// k. Fewer than k entries returns all of them; an empty index returns none.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]rag.Result, error) {
	start := time.Now()
	defer func() { x.metrics.observeSearch(time.Since(start).Seconds()) }()

	s := x.snap.Load()
	if k <= 0 || len(s.entries) == 0 {
		return []rag.Result{}, nil
	}
	if len(query) != s.dim {
		return nil, &rag.DimensionMismatchError{Want: s.dim, Got: len(query)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := unit(query)
	results := make([]rag.Result, len(s.entries))
	for i, e := range s.entries {
		results[i] = rag.Result{
			ID:    e.ID,
			Chunk: e.Chunk,
			Score: float32(dot(q, s.units[i])),
		}
	}
	rag.SortResults(results)
	return results[:min(k, len(results))], nil
}

// Count returns the number of committed entries.
func (x *Index) Count(context.Context) (int, error) {
	return len(x.snap.Load().entries), nil
}

// Dimension returns the fixed vector dimension, or 0 before the first Add.
func (x *Index) Dimension() int {
	return x.snap.Load().dim
}

// Ping checks the backing store when it supports health checks.
func (x *Index) Ping(ctx context.Context) error {
	if p, ok := x.persist.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the backing store.
func (x *Index) Close() error {
	return x.persist.Close()
}

// unit returns v scaled to unit length in float64. The zero vector stays zero
// and therefore scores 0 against everything.
func unit(v []float32) []float64 {
	var norm float64
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	out := make([]float64, len(v))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, f := range v {
		out[i] = float64(f) / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
