package embedder

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultHashDimensions is the vector size of the hashing embedder.
const DefaultHashDimensions = 256

// HashEmbedder is a deterministic, dependency-free embedder based on feature
// hashing of lower-cased word unigrams and bigrams. It needs no model server,
// which makes it suitable for offline use and tests; retrieval quality is
// lexical, not semantic.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns a HashEmbedder producing dim-sized vectors.
// dim <= 0 selects DefaultHashDimensions.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimensions
	}
	return &HashEmbedder{dim: dim}
}

// Embed returns one vector per text.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, h.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		h.addFeature(v, w, 1)
		if i > 0 {
			h.addFeature(v, words[i-1]+" "+w, 0.5)
		}
	}
	return v
}

// addFeature adds weight to the bucket of feature, signed by a second hash
// bit so collisions tend to cancel rather than accumulate.
func (h *HashEmbedder) addFeature(v []float32, feature string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	bucket := sum % uint64(h.dim) //nolint:gosec // dim is positive
	if sum>>63 == 1 {
		weight = -weight
	}
	v[bucket] += weight
}
