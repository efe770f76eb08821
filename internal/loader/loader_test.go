package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/54b3r/docqa-go/internal/rag"
)

func TestLoad_Failures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	notPDF := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(notPDF, []byte("just some plain text, not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	truncated := filepath.Join(dir, "truncated.pdf")
	if err := os.WriteFile(truncated, []byte("%PDF-1.4\n1 0 obj\n<<"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.pdf")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		path     string
		notExist bool
	}{
		{"missing file", filepath.Join(dir, "missing.pdf"), true},
		{"directory", dir, false},
		{"not a pdf", notPDF, false},
		{"truncated pdf", truncated, false},
		{"empty file", empty, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := NewPDFLoader().Load(context.Background(), tt.path)
			if doc != nil {
				t.Errorf("expected nil document, got %+v", doc)
			}
			var le *rag.LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected *rag.LoadError, got %T: %v", err, err)
			}
			if le.Path != tt.path {
				t.Errorf("LoadError.Path = %q, want %q", le.Path, tt.path)
			}
			if tt.notExist && !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("expected fs.ErrNotExist in chain, got %v", err)
			}
		})
	}
}

// writePDF writes a minimal PDF with one Helvetica text line per page.
func writePDF(t *testing.T, path string, pages []string) {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_PagesInOrder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manual.pdf")
	want := []string{"Hello page one", "Second page text", "Third"}
	writePDF(t, path, want)

	doc, err := NewPDFLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Path != path {
		t.Errorf("Path = %q, want %q", doc.Path, path)
	}
	if len(doc.Pages) != len(want) {
		t.Fatalf("got %d pages, want %d: %q", len(doc.Pages), len(want), doc.Pages)
	}
	for i, w := range want {
		if got := strings.TrimSpace(doc.Pages[i]); got != w {
			t.Errorf("page %d = %q, want %q", i+1, got, w)
		}
	}

	// Load must not hold the file open.
	if err := os.Remove(path); err != nil {
		t.Errorf("remove after Load: %v", err)
	}
}
