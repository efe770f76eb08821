// Package rag defines the retrieval core shared by ingestion and querying:
// the chunk and result types, the Embedder and VectorIndex interfaces, the
// typed error taxonomy, and the Retriever that joins them. Concrete index
// backends (the local SQLite-backed index in internal/index, Qdrant here)
// satisfy VectorIndex so callers never depend on a specific backend.
package rag

import (
	"context"
)

// Chunk is a bounded fragment of one page of one document: the unit of
// embedding and retrieval. Chunks are immutable once produced.
type Chunk struct {
	// Text is the chunk content.
	Text string `json:"text"`

	// Source identifies the document the chunk came from (a file path or
	// the original name of an uploaded file).
	Source string `json:"source"`

	// Page is the 1-based page number within Source.
	Page int `json:"page"`

	// Offset is the rune offset of the chunk start within the page text.
	Offset int `json:"offset"`
}

// Result is one retrieval hit.
type Result struct {
	// ID is the index entry id, assigned in insertion order.
	ID uint64 `json:"id"`

	// Chunk is the stored chunk.
	Chunk Chunk `json:"chunk"`

	// Score is the cosine similarity between the query and the entry.
	Score float32 `json:"score"`
}

// AddResult describes one committed Add call.
type AddResult struct {
	// BatchID identifies the committed batch. Empty when nothing was added.
	BatchID string

	// FirstID and LastID bound the ids assigned to the batch, inclusive.
	FirstID, LastID uint64

	// Added is the number of entries committed.
	Added int
}

// Embedder converts text into dense vectors.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is a persistent nearest-neighbour index over chunk embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorIndex interface {
	// Add embeds chunks and appends them as new entries. Either every chunk
	// is committed durably or none is.
	Add(ctx context.Context, chunks []Chunk) (AddResult, error)

	// Search returns up to k entries ordered by descending cosine
	// similarity to query, ties broken by ascending id.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)

	// Count returns the number of committed entries.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the index.
	Close() error
}

// Retriever fetches the chunks most relevant to a natural-language question.
type Retriever interface {
	// Retrieve returns up to k results. k <= 0 selects the default.
	Retrieve(ctx context.Context, question string, k int) ([]Result, error)
}
