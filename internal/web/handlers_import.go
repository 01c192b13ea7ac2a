package web

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lakshya1112/Buyer-lead-app/internal/core"
)

var (
	errNoFile       = errors.New("no file provided")
	errFileTooLarge = errors.New("file too large")
)

// readUpload returns the multipart "file" part, bounded by the configured
// upload size.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var sizeErr *http.MaxBytesError
		if errors.As(err, &sizeErr) || strings.Contains(err.Error(), "request body too large") {
			return nil, nil, fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, maxSize)
		}
		return nil, nil, fmt.Errorf("%w form: %v", errMalformed, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errNoFile
	}
	return file, header, nil
}

// loadImport parses and validates the uploaded file into a new session.
func (s *Server) loadImport(w http.ResponseWriter, r *http.Request) (*core.ImportSession, core.Preview, error) {
	file, header, err := s.readUpload(w, r)
	if err != nil {
		return nil, core.Preview{}, err
	}
	defer file.Close()

	session := s.service.NewImport()
	preview, err := session.Load(r.Context(), header.Filename, file)
	if err != nil {
		session.Abandon()
		return nil, core.Preview{}, err
	}
	return session, preview, nil
}

// handleImportPreview validates an upload without writing anything.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	session, preview, err := s.loadImport(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	session.Abandon()
	writeJSON(w, http.StatusOK, preview)
}

type commitResponse struct {
	core.CommitResult
	Rejected []core.RejectedRow `json:"rejected"`
}

// handleImportCommit re-validates the upload and inserts every accepted
// row in one transaction. Rejected rows are reported back and skipped.
func (s *Server) handleImportCommit(w http.ResponseWriter, r *http.Request) {
	session, preview, err := s.loadImport(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer session.Abandon()

	result, err := session.Commit(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rejected := preview.Rejected
	if rejected == nil {
		rejected = []core.RejectedRow{}
	}
	writeJSON(w, http.StatusCreated, commitResponse{CommitResult: result, Rejected: rejected})
}

// handleImportTemplate downloads an empty file with the import headers.
func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.service.ImportTemplate(format, &buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	setDownloadHeaders(w, format, "leads_import_template")
	_, _ = buf.WriteTo(w)
}
