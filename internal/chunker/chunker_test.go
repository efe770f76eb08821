package chunker

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/54b3r/docqa-go/internal/rag"
)

func newDefault(t *testing.T) *Splitter {
	t.Helper()
	s, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func collect(s *Splitter, text string) []rag.Chunk {
	return slices.Collect(s.Split("doc.pdf", 1, text))
}

func TestSplit_SeparatorFreeTextOf700(t *testing.T) {
	t.Parallel()

	chunks := collect(newDefault(t), strings.Repeat("A", 700))
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if len(chunks[0].Text) != 650 || chunks[0].Offset != 0 {
		t.Errorf("first chunk: len %d offset %d", len(chunks[0].Text), chunks[0].Offset)
	}
	if chunks[1].Offset != 570 || len(chunks[1].Text) != 130 {
		t.Errorf("second chunk: len %d offset %d, want 130 at 570", len(chunks[1].Text), chunks[1].Offset)
	}
	if chunks[0].Text[570:] != chunks[1].Text[:80] {
		t.Error("chunks do not share the 80-character overlap")
	}
}

func TestSplit_ChunkCountFormula(t *testing.T) {
	t.Parallel()

	s := newDefault(t)
	for _, n := range []int{651, 700, 1219, 1220, 1221, 2000, 5000, 10007} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			t.Parallel()
			got := len(collect(s, strings.Repeat("x", n)))
			want := (n - 80 + 569) / 570
			if got != want {
				t.Errorf("L=%d: got %d chunks, want %d", n, got, want)
			}
		})
	}
}

func TestSplit_ShortTextIsOneChunk(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"a", "Hello world.\nSecond line.", strings.Repeat("z", 650)} {
		chunks := collect(newDefault(t), text)
		if len(chunks) != 1 || chunks[0].Text != text || chunks[0].Offset != 0 {
			t.Errorf("text of length %d: got %+v", len(text), chunks)
		}
	}
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", " ", "\n\n\t  \n"} {
		if chunks := collect(newDefault(t), text); len(chunks) != 0 {
			t.Errorf("%q: got %d chunks, want 0", text, len(chunks))
		}
	}
}

func TestSplit_DropsWhitespaceOnlyWindows(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("A", 600) + strings.Repeat(" ", 1400) + strings.Repeat("B", 600)
	chunks := collect(newDefault(t), text)

	var offsets []int
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("whitespace-only chunk at offset %d", c.Offset)
		}
		offsets = append(offsets, c.Offset)
	}
	// The window at 1140 is entirely blank and is not emitted.
	if want := []int{0, 570, 1710, 2280}; !slices.Equal(offsets, want) {
		t.Errorf("offsets = %v, want %v", offsets, want)
	}
}

func TestSplit_PrefersSeparator(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 400) + "\n" + strings.Repeat("b", 400)
	chunks := collect(newDefault(t), text)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Text != strings.Repeat("a", 400) {
		t.Errorf("first chunk should end at the newline, got len %d", len(chunks[0].Text))
	}
	if chunks[1].Offset != 320 {
		t.Errorf("second chunk offset = %d, want 320", chunks[1].Offset)
	}
	if !strings.HasPrefix(chunks[1].Text, strings.Repeat("a", 80)+"\n") {
		t.Error("second chunk does not start with the 80-character overlap")
	}
}

func TestSplit_PropertiesOnMixedText(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := range 300 {
		b.WriteString(strings.Repeat(string(rune('a'+i%26)), 1+(i*37)%120))
		if i%7 != 0 {
			b.WriteString("\n")
		}
	}
	text := b.String()
	runes := []rune(text)

	s := newDefault(t)
	chunks := collect(s, text)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		n := utf8.RuneCountInString(c.Text)
		if n > 650 {
			t.Errorf("chunk %d has %d runes, exceeds 650", i, n)
		}
		if string(runes[c.Offset:c.Offset+n]) != c.Text {
			t.Errorf("chunk %d text does not match page text at offset %d", i, c.Offset)
		}
		if i == 0 {
			continue
		}
		prev := chunks[i-1]
		prevEnd := prev.Offset + utf8.RuneCountInString(prev.Text)
		if prevEnd-c.Offset != 80 {
			t.Errorf("chunks %d/%d overlap by %d runes, want 80", i-1, i, prevEnd-c.Offset)
		}
	}

	again := collect(s, text)
	if !slices.Equal(chunks, again) {
		t.Error("chunking is not deterministic")
	}
}

func TestSplit_MultibyteRunes(t *testing.T) {
	t.Parallel()

	chunks := collect(newDefault(t), strings.Repeat("é", 700))
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if n := utf8.RuneCountInString(chunks[0].Text); n != 650 {
		t.Errorf("first chunk has %d runes, want 650", n)
	}
	if chunks[1].Offset != 570 {
		t.Errorf("second chunk rune offset = %d, want 570", chunks[1].Offset)
	}
	for _, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Error("chunk split a multi-byte character")
		}
	}
}

func TestSplit_StopsEarly(t *testing.T) {
	t.Parallel()

	n := 0
	for range newDefault(t).Split("doc.pdf", 1, strings.Repeat("y", 5000)) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d chunks, want 2", n)
	}
}

func TestSplitPages_NumbersPagesFromOne(t *testing.T) {
	t.Parallel()

	chunks := newDefault(t).SplitPages("report.pdf", []string{"first page", "", "third page"})
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Page != 1 || chunks[1].Page != 3 {
		t.Errorf("pages = %d, %d; want 1, 3", chunks[0].Page, chunks[1].Page)
	}
	if chunks[1].Source != "report.pdf" {
		t.Errorf("source = %q", chunks[1].Source)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero size", Config{ChunkSize: 0}},
		{"overlap equals size", Config{ChunkSize: 10, ChunkOverlap: 10}},
		{"negative overlap", Config{ChunkSize: 10, ChunkOverlap: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg); err == nil {
				t.Errorf("New(%+v) succeeded, want error", tt.cfg)
			}
		})
	}
}
