package rag

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Payload keys stored on every Qdrant point.
const (
	payloadText   = "text"
	payloadSource = "source"
	payloadPage   = "page"
	payloadOffset = "offset"
	payloadBatch  = "batch_id"
)

// QdrantConfig holds connection parameters for a Qdrant-backed index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name (default: docqa).
	Collection string

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Embedder embeds chunks on Add.
	Embedder Embedder

	// BatchSize is the number of chunks per embedder call (default: 64).
	BatchSize int
}

// QdrantIndex implements VectorIndex on a Qdrant collection. Points carry
// sequential numeric ids so ranking ties resolve in insertion order, the same
// as the local index. The collection is created on the first Add with the
// dimension of the first vector.
type QdrantIndex struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration.
	cfg QdrantConfig

	// mu serialises Add and guards nextID. Readers never take it.
	mu sync.Mutex

	// dim is the collection vector size, 0 until the collection exists.
	dim atomic.Int64

	// nextID is the id assigned to the next point.
	nextID uint64
}

// NewQdrantIndex connects to Qdrant and reads the collection's dimension and
// point count when it already exists.
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig) (*QdrantIndex, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("qdrant: embedder must not be nil")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "docqa"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	idx := &QdrantIndex{client: client, cfg: cfg, nextID: 1}
	if err := idx.loadState(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return idx, nil
}

// loadState reads the dimension and next id of an existing collection.
func (q *QdrantIndex) loadState(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return &PersistenceError{Op: "open", Err: fmt.Errorf("qdrant: check collection: %w", err)}
	}
	if !exists {
		return nil
	}

	info, err := q.client.GetCollectionInfo(ctx, q.cfg.Collection)
	if err != nil {
		return &PersistenceError{Op: "load", Err: fmt.Errorf("qdrant: collection info: %w", err)}
	}
	q.dim.Store(int64(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())) //nolint:gosec // vector sizes are small

	n, err := q.count(ctx)
	if err != nil {
		return err
	}
	q.nextID = n + 1
	return nil
}

// ensureCollection creates the collection with vector size dim.
func (q *QdrantIndex) ensureCollection(ctx context.Context, dim int) error {
	err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim), //nolint:gosec // dim is positive
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return &PersistenceError{Op: "create", Err: fmt.Errorf("qdrant: create collection %q: %w", q.cfg.Collection, err)}
	}
	q.dim.Store(int64(dim))
	return nil
}

// Add embeds chunks and upserts them in one request that waits for the write
// to be applied.
func (q *QdrantIndex) Add(ctx context.Context, chunks []Chunk) (AddResult, error) {
	if len(chunks) == 0 {
		return AddResult{}, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	vectors, err := EmbedChunks(ctx, q.cfg.Embedder, chunks, q.cfg.BatchSize, int(q.dim.Load()))
	if err != nil {
		return AddResult{}, err
	}

	if q.dim.Load() == 0 {
		if err := q.ensureCollection(ctx, len(vectors[0])); err != nil {
			return AddResult{}, err
		}
	}

	batchID := uuid.NewString()
	first := q.nextID
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(first + uint64(i)), //nolint:gosec // i is non-negative
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: chunkPayload(c, batchID),
		}
	}

	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return AddResult{}, &PersistenceError{Op: "commit", Err: fmt.Errorf("qdrant: upsert: %w", err)}
	}

	q.nextID = first + uint64(len(chunks))
	return AddResult{
		BatchID: batchID,
		FirstID: first,
		LastID:  q.nextID - 1,
		Added:   len(chunks),
	}, nil
}

// tieWindow returns how many points to request for a top-k search so that
// equal scores around position k can be re-ordered by id before cutting.
func tieWindow(k int) int {
	return k + max(k, 8)
}

// topK orders results by (score desc, id asc) and keeps the first k.
func topK(results []Result, k int) []Result {
	SortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Search queries the collection and returns at most k results in
// (score desc, id asc) order. It does not wait for an in-flight Add.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	dim := int(q.dim.Load())
	if k <= 0 || dim == 0 {
		return []Result{}, nil
	}
	if len(query) != dim {
		return nil, &DimensionMismatchError{Want: dim, Got: len(query)}
	}

	limit := uint64(tieWindow(k)) //nolint:gosec // k is positive
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	results := make([]Result, 0, len(points))
	for _, p := range points {
		results = append(results, resultFromPoint(p))
	}
	return topK(results, k), nil
}

// Count returns the exact number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	if q.dim.Load() == 0 {
		return 0, nil
	}
	n, err := q.count(ctx)
	if err != nil {
		return 0, err
	}
	return int(n), nil //nolint:gosec // point counts fit in int
}

func (q *QdrantIndex) count(ctx context.Context) (uint64, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.cfg.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, &PersistenceError{Op: "load", Err: fmt.Errorf("qdrant: count: %w", err)}
	}
	return n, nil
}

// Ping reports whether the Qdrant server answers health checks.
func (q *QdrantIndex) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

// chunkPayload converts a chunk into Qdrant point payload.
func chunkPayload(c Chunk, batchID string) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		payloadText:   qdrant.NewValueString(c.Text),
		payloadSource: qdrant.NewValueString(c.Source),
		payloadPage:   qdrant.NewValueInt(int64(c.Page)),
		payloadOffset: qdrant.NewValueInt(int64(c.Offset)),
		payloadBatch:  qdrant.NewValueString(batchID),
	}
}

// resultFromPoint converts a scored Qdrant point back into a Result.
func resultFromPoint(p *qdrant.ScoredPoint) Result {
	r := Result{
		ID:    p.GetId().GetNum(),
		Score: p.GetScore(),
	}
	payload := p.GetPayload()
	r.Chunk = Chunk{
		Text:   payload[payloadText].GetStringValue(),
		Source: payload[payloadSource].GetStringValue(),
		Page:   int(payload[payloadPage].GetIntegerValue()),
		Offset: int(payload[payloadOffset].GetIntegerValue()),
	}
	return r
}
