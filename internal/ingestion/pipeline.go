// Package ingestion implements the document ingestion pipeline.
// It loads PDF files, splits every page into chunks and adds the whole set
// to the vector index as a single batch. This pipeline backs `docqa ingest`,
// the upload endpoint and the startup bootstrap of `docqa serve`.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/54b3r/docqa-go/internal/chunker"
	"github.com/54b3r/docqa-go/internal/loader"
	"github.com/54b3r/docqa-go/internal/rag"
)

// Source describes one file to ingest.
type Source struct {
	// Path is the filesystem path of the PDF.
	Path string

	// Name is the display name recorded as the chunk source. Defaults to
	// the base name of Path. Uploads set it to the client filename so the
	// temp file name never reaches the index.
	Name string
}

func (s Source) name() string {
	if s.Name != "" {
		return s.Name
	}
	return filepath.Base(s.Path)
}

// FileFailure records a file that could not be loaded.
type FileFailure struct {
	Name string `json:"name"`
	Err  string `json:"error"`
}

// Report summarises one ingestion batch.
type Report struct {
	// Files is the number of sources offered.
	Files int `json:"files"`
	// Loaded is the number of sources that were read successfully.
	Loaded int `json:"loaded"`
	// Chunks is the number of chunks produced from the loaded files.
	Chunks int `json:"chunks"`
	// Added is the number of index entries created.
	Added int `json:"added"`
	// BatchID identifies the committed batch; empty when nothing was added.
	BatchID string `json:"batch_id,omitempty"`
	// Failed lists the sources skipped because they could not be loaded.
	Failed []FileFailure `json:"failed,omitempty"`
}

// Config holds the optional collaborators of a Pipeline.
type Config struct {
	// Logger receives per-file events. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics, when non-nil, counts files and chunks.
	Metrics *Metrics
}

// Pipeline orchestrates the load → chunk → index flow.
type Pipeline struct {
	loader   loader.Loader
	splitter *chunker.Splitter
	index    rag.VectorIndex
	log      *slog.Logger
	metrics  *Metrics
}

// NewPipeline constructs a Pipeline from the provided dependencies.
func NewPipeline(l loader.Loader, s *chunker.Splitter, index rag.VectorIndex, cfg Config) (*Pipeline, error) {
	if l == nil {
		return nil, fmt.Errorf("ingestion: loader must not be nil")
	}
	if s == nil {
		return nil, fmt.Errorf("ingestion: splitter must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		loader:   l,
		splitter: s,
		index:    index,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
	}, nil
}

// Ingest loads every source, chunks it and adds all chunks to the index in
// one batch. Files that fail to load are recorded in Report.Failed and do not
// stop the batch. Embedding and persistence failures abort the whole batch,
// leaving the index unchanged, and are returned alongside the partial report.
// Progress is reported via the optional progress callback.
func (p *Pipeline) Ingest(ctx context.Context, sources []Source, progress func(msg string)) (*Report, error) {
	if progress == nil {
		progress = func(string) {}
	}

	report := &Report{Files: len(sources)}
	var chunks []rag.Chunk

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		name := src.name()
		progress(fmt.Sprintf("loading %s", name))

		doc, err := p.loader.Load(ctx, src.Path)
		if err != nil {
			var le *rag.LoadError
			if !errors.As(err, &le) {
				return report, fmt.Errorf("ingestion: load %s: %w", name, err)
			}
			p.log.Warn("ingestion: skipping unreadable file",
				slog.String("file", name),
				slog.Any("error", err),
			)
			report.Failed = append(report.Failed, FileFailure{Name: name, Err: le.Err.Error()})
			p.metrics.file("failed")
			progress(fmt.Sprintf("skipped %s: %v", name, le.Err))
			continue
		}

		fileChunks := p.splitter.SplitPages(name, doc.Pages)
		chunks = append(chunks, fileChunks...)
		report.Loaded++
		p.metrics.file("loaded")
		progress(fmt.Sprintf("chunked %s: %d pages, %d chunks", name, len(doc.Pages), len(fileChunks)))
	}

	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		return report, nil
	}

	progress(fmt.Sprintf("embedding %d chunks", len(chunks)))
	res, err := p.index.Add(ctx, chunks)
	if err != nil {
		return report, fmt.Errorf("ingestion: add batch: %w", err)
	}
	report.Added = res.Added
	report.BatchID = res.BatchID
	p.metrics.chunks(res.Added)

	p.log.Info("ingestion: batch committed",
		slog.String("batch_id", res.BatchID),
		slog.Int("files", report.Files),
		slog.Int("loaded", report.Loaded),
		slog.Int("chunks", res.Added),
	)
	progress(fmt.Sprintf("ingested %d chunks from %d files", res.Added, report.Loaded))
	return report, nil
}

// Bootstrap ingests every PDF in dir when the index is empty. The directory is
// created when it does not exist. A non-empty index is left untouched and a
// nil report is returned.
func (p *Pipeline) Bootstrap(ctx context.Context, dir string) (*Report, error) {
	n, err := p.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingestion: count index: %w", err)
	}
	if n > 0 {
		p.log.Info("ingestion: index already populated, skipping bootstrap",
			slog.Int("entries", n),
			slog.String("dir", dir),
		)
		return nil, nil
	}

	sources, err := ScanDir(dir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		p.log.Info("ingestion: no PDF files to bootstrap", slog.String("dir", dir))
		return &Report{}, nil
	}
	return p.Ingest(ctx, sources, func(msg string) {
		p.log.Debug("ingestion: "+msg, slog.String("dir", dir))
	})
}

// ScanDir returns a Source for every *.pdf file directly under dir, sorted by
// name. The directory is created when missing.
func ScanDir(dir string) ([]Source, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ingestion: create %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingestion: read %s: %w", dir, err)
	}

	var sources []Source
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		sources = append(sources, Source{Path: filepath.Join(dir, e.Name()), Name: e.Name()})
	}
	slices.SortFunc(sources, func(a, b Source) int { return strings.Compare(a.Name, b.Name) })
	return sources, nil
}
