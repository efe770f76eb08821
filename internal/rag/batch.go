package rag

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

// EmbedChunks embeds the text of chunks in batches of batchSize, returning
// one vector per chunk in order. Every vector is checked to share a single
// non-zero dimension; if want > 0 that dimension must equal want.
func EmbedChunks(ctx context.Context, emb Embedder, chunks []Chunk, batchSize, want int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(chunks)
	}
	vectors := make([][]float32, 0, len(chunks))
	texts := make([]string, 0, min(batchSize, len(chunks)))

	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		texts = texts[:0]
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		out, err := emb.Embed(ctx, texts)
		if err != nil {
			return nil, AsEmbeddingError(err)
		}
		if len(out) != len(texts) {
			return nil, &EmbeddingError{
				Attempts: 1,
				Err:      fmt.Errorf("embedder returned %d vectors for %d texts", len(out), len(texts)),
			}
		}
		vectors = append(vectors, out...)
	}

	if _, err := CheckDimensions(vectors, want); err != nil {
		return nil, err
	}
	return vectors, nil
}

// CheckDimensions verifies that all vectors have the same non-zero length
// and, when want > 0, that the length equals want. It returns the common
// dimension (want, or the first vector's length).
func CheckDimensions(vectors [][]float32, want int) (int, error) {
	if len(vectors) == 0 {
		return want, nil
	}
	dim := want
	if dim <= 0 {
		dim = len(vectors[0])
		if dim == 0 {
			return 0, &EmbeddingError{Attempts: 1, Err: fmt.Errorf("embedder returned an empty vector")}
		}
	}
	for _, v := range vectors {
		if len(v) != dim {
			return 0, &DimensionMismatchError{Want: dim, Got: len(v)}
		}
	}
	return dim, nil
}

// SortResults orders results by descending score, breaking ties by ascending
// id so equal scores keep insertion order.
func SortResults(results []Result) {
	slices.SortStableFunc(results, func(a, b Result) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
