package rag

import (
	"context"
	"fmt"
)

// DefaultRetriever implements Retriever by combining an Embedder and a
// VectorIndex. It embeds the question once and delegates ranking to the index.
type DefaultRetriever struct {
	// embedder converts the question to a dense vector.
	embedder Embedder

	// index performs the similarity search.
	index VectorIndex

	// defaultTopK is the number of results returned when the caller passes k <= 0.
	defaultTopK int
}

// DefaultTopK is the retrieval depth used when none is configured.
const DefaultTopK = 4

// NewRetriever constructs a DefaultRetriever. defaultTopK <= 0 selects DefaultTopK.
func NewRetriever(embedder Embedder, index VectorIndex, defaultTopK int) (*DefaultRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &DefaultRetriever{
		embedder:    embedder,
		index:       index,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve returns the k chunks most similar to question. It fails with
// ErrNoIndex, without calling the embedder, when the index holds no entries.
func (r *DefaultRetriever) Retrieve(ctx context.Context, question string, k int) ([]Result, error) {
	if k <= 0 {
		k = r.defaultTopK
	}

	n, err := r.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("rag: counting index entries: %w", err)
	}
	if n == 0 {
		return nil, ErrNoIndex
	}

	vectors, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding question: %w", AsEmbeddingError(err))
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("rag: embedding question: %w", &EmbeddingError{
			Attempts: 1,
			Err:      fmt.Errorf("embedder returned %d vectors for 1 text", len(vectors)),
		})
	}

	results, err := r.index.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search: %w", err)
	}
	return results, nil
}
