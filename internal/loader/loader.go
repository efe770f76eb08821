// Package loader extracts per-page plain text from PDF files.
package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/54b3r/docqa-go/internal/rag"
)

// Document is the extracted text of one PDF, one entry per page in page order.
type Document struct {
	// Path is the file the document was read from.
	Path string

	// Pages holds the plain text of each page. Pages without extractable
	// text are empty strings so numbering is preserved.
	Pages []string
}

// Loader reads a document from a filesystem path.
type Loader interface {
	Load(ctx context.Context, path string) (*Document, error)
}

// PDFLoader implements Loader for PDF files. It keeps no file handle open
// after Load returns.
type PDFLoader struct{}

// NewPDFLoader returns a PDFLoader.
func NewPDFLoader() *PDFLoader { return &PDFLoader{} }

// Load returns the text of every page of the PDF at path. Any failure to open
// or parse the file is reported as *rag.LoadError.
func (l *PDFLoader) Load(ctx context.Context, path string) (doc *Document, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = &rag.LoadError{Path: path, Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()

	info, err := os.Stat(path)
	if err != nil {
		return nil, &rag.LoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &rag.LoadError{Path: path, Err: fmt.Errorf("is a directory")}
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, &rag.LoadError{Path: path, Err: err}
	}
	defer f.Close()

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, &rag.LoadError{Path: path, Err: fmt.Errorf("page %d: %w", i, err)}
		}
		pages = append(pages, text)
	}

	return &Document{Path: path, Pages: pages}, nil
}
