package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"entregas/internal/ingest"
)

// maxUploadBytes caps spreadsheet and photo uploads.
const maxUploadBytes = 10 << 20

// handleImport accepts a multipart upload under "file": an XLSX workbook or a
// control-sheet photo. The type is decided by extension first, content type
// second. A failed import commits nothing.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "malformed upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	contentType := header.Header.Get("Content-Type")

	switch {
	case strings.EqualFold(filepath.Ext(filename), ".xlsx"):
		s.importSpreadsheet(w, r, filename, file)
	case strings.HasPrefix(contentType, "image/"):
		s.importImage(w, r, contentType, file)
	default:
		writeError(w, http.StatusUnsupportedMediaType, "expected an .xlsx workbook or an image")
	}
}

func (s *Server) importSpreadsheet(w http.ResponseWriter, r *http.Request, filename string, file io.Reader) {
	added, err := s.ledger.ImportSpreadsheet(r.Context(), filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrMissingColumns), errors.Is(err, ingest.ErrEmptySheet):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			slog.ErrorContext(r.Context(), "Spreadsheet import failed", "file", filename, "error", err)
			writeError(w, http.StatusUnprocessableEntity, "could not read spreadsheet")
		}
		return
	}
	if added > 0 {
		s.bump()
	}
	slog.InfoContext(r.Context(), "Spreadsheet imported", "file", filename, "added", added)
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

func (s *Server) importImage(w http.ResponseWriter, r *http.Request, contentType string, file io.Reader) {
	if !s.ledger.PhotoImportEnabled() {
		writeError(w, http.StatusServiceUnavailable, "photo import is not configured")
		return
	}
	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}
	added, err := s.ledger.ImportImage(r.Context(), contentType, image)
	if err != nil {
		slog.ErrorContext(r.Context(), "Photo import failed", "error", err)
		writeError(w, http.StatusBadGateway, "photo extraction failed")
		return
	}
	if added > 0 {
		s.bump()
	}
	slog.InfoContext(r.Context(), "Photo imported", "added", added)
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}
