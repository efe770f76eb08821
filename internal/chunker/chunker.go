// Package chunker splits page text into overlapping, size-bounded chunks.
//
// Lengths and offsets are measured in runes. A chunk ends at the last
// separator that keeps it within ChunkSize; when no separator fits, the text
// is cut at exactly ChunkSize runes. Consecutive windows over one page share
// exactly ChunkOverlap runes, and chunks never span pages. Windows that hold
// only whitespace are dropped, so two emitted chunks may be further apart when
// a long blank run separates them.
package chunker

import (
	"fmt"
	"iter"
	"strings"

	"github.com/54b3r/docqa-go/internal/rag"
)

// Defaults applied by DefaultConfig.
const (
	DefaultSeparator    = "\n"
	DefaultChunkSize    = 650
	DefaultChunkOverlap = 80
)

// Config controls chunk boundaries.
type Config struct {
	// Separator is the preferred split point. Empty disables separator
	// matching so every split is a hard cut.
	Separator string

	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int

	// ChunkOverlap is the number of runes shared by adjacent chunks.
	// Must be smaller than ChunkSize.
	ChunkOverlap int
}

// DefaultConfig returns the newline / 650 / 80 configuration.
func DefaultConfig() Config {
	return Config{
		Separator:    DefaultSeparator,
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	}
}

// Splitter produces chunks for a fixed Config. It holds no mutable state and
// is safe for concurrent use.
type Splitter struct {
	sep     []rune
	size    int
	overlap int
}

// New validates cfg and returns a Splitter.
func New(cfg Config) (*Splitter, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunker: overlap must be in [0, %d), got %d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	return &Splitter{
		sep:     []rune(cfg.Separator),
		size:    cfg.ChunkSize,
		overlap: cfg.ChunkOverlap,
	}, nil
}

// Split lazily yields the chunks of one page. Empty or whitespace-only text
// yields nothing, as do windows that contain only whitespace.
func (s *Splitter) Split(source string, page int, text string) iter.Seq[rag.Chunk] {
	return func(yield func(rag.Chunk) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}
		runes := []rune(text)
		n := len(runes)

		for start := 0; ; {
			end := n
			if n-start > s.size {
				end = s.cut(runes, start)
			}

			piece := string(runes[start:end])
			if strings.TrimSpace(piece) != "" {
				c := rag.Chunk{Text: piece, Source: source, Page: page, Offset: start}
				if !yield(c) {
					return
				}
			}

			if end == n {
				return
			}
			start = end - s.overlap
		}
	}
}

// SplitPages splits every page of a document, numbering pages from 1.
func (s *Splitter) SplitPages(source string, pages []string) []rag.Chunk {
	var out []rag.Chunk
	for i, text := range pages {
		for c := range s.Split(source, i+1, text) {
			out = append(out, c)
		}
	}
	return out
}

// cut returns the end of the window starting at start: the position of the
// last separator in (start+overlap, start+size], or start+size when there is
// none. The lower bound keeps the next window start strictly ahead of start.
func (s *Splitter) cut(runes []rune, start int) int {
	limit := start + s.size
	if len(s.sep) > 0 {
		for p := min(limit, len(runes)-len(s.sep)); p > start+s.overlap; p-- {
			if hasPrefixAt(runes, s.sep, p) {
				return p
			}
		}
	}
	return limit
}

// hasPrefixAt reports whether sep occurs in runes at position p.
func hasPrefixAt(runes, sep []rune, p int) bool {
	for i, r := range sep {
		if runes[p+i] != r {
			return false
		}
	}
	return true
}
