package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/54b3r/docqa-go/internal/ingestion"
	"github.com/54b3r/docqa-go/internal/logging"
	"github.com/54b3r/docqa-go/internal/rag"
)

// uploadField is the multipart form field carrying the files.
const uploadField = "files"

// multipartMemory is the part of an upload kept in memory before spilling to
// disk.
const multipartMemory = 8 << 20

// handleUpload handles POST /api/upload. Every file in the "files" field is
// written to a temp file, ingested in one batch under its client filename,
// and removed afterwards. Unreadable files are reported, not fatal.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		writeError(w, r, http.StatusBadRequest, `no files in form field "files"`)
		return
	}

	tmpDir, err := os.MkdirTemp("", "docqa-upload-")
	if err != nil {
		log.Error("upload: temp dir", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			log.Warn("upload: temp cleanup failed", slog.String("dir", tmpDir), slog.Any("error", err))
		}
	}()

	sources := make([]ingestion.Source, 0, len(headers))
	for i, fh := range headers {
		dst := filepath.Join(tmpDir, fmt.Sprintf("%03d.pdf", i))
		if err := saveUpload(fh, dst); err != nil {
			log.Error("upload: save failed", slog.String("file", fh.Filename), slog.Any("error", err))
			writeError(w, r, http.StatusInternalServerError, "failed to store upload")
			return
		}
		sources = append(sources, ingestion.Source{Path: dst, Name: displayName(fh.Filename, i)})
	}

	report, err := s.ingester.Ingest(r.Context(), sources, nil)
	if err != nil {
		s.metrics.upload("error", 0)
		log.Error("upload: ingestion failed", slog.Int("files", len(sources)), slog.Any("error", err))
		var embErr *rag.EmbeddingError
		if errors.As(err, &embErr) {
			writeError(w, r, http.StatusBadGateway, "embedding service unavailable")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed to ingest documents")
		return
	}
	s.metrics.upload("ok", report.Loaded)

	writeJSON(w, r, http.StatusOK, uploadResponse{
		Message: fmt.Sprintf("%d file(s) loaded successfully", report.Loaded),
		Report:  report,
	})
}

// saveUpload copies one multipart file to name.
func saveUpload(fh *multipart.FileHeader, name string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

// displayName reduces a client-supplied filename to its base name.
func displayName(name string, i int) string {
	base := path.Base(path.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if base == "/" || base == "." || base == "" {
		return fmt.Sprintf("upload-%d.pdf", i+1)
	}
	return base
}
