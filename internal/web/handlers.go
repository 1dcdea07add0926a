package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sansdoublons/internal/core"
	"github.com/JonMunkholm/sansdoublons/internal/dedup"
	"github.com/JonMunkholm/sansdoublons/internal/ingest"
	"github.com/JonMunkholm/sansdoublons/internal/logging"
	"github.com/JonMunkholm/sansdoublons/internal/web/templates"
)

const (
	// multipartMemory is how much of a multipart body is held in memory
	// before spilling to temporary files.
	multipartMemory = 32 << 20

	// multipartOverhead allows for form boundaries and headers on top of
	// the file itself.
	multipartOverhead = 1 << 20
)

// newOptions lists the choices offered by the forms.
func newOptions(maxFileSize int64) templates.Options {
	opts := templates.Options{
		Extensions:  ingest.Extensions(),
		MaxFileSize: maxFileSize,
		Keep: []templates.Choice{
			{Value: dedup.KeepFirst.String(), Label: "first occurrence"},
			{Value: dedup.KeepLast.String(), Label: "last occurrence"},
		},
	}
	for _, e := range ingest.Encodings {
		opts.Encodings = append(opts.Encodings, templates.Choice{Value: string(e), Label: string(e)})
	}
	for _, d := range ingest.Delimiters {
		opts.Delimiters = append(opts.Delimiters, templates.Choice{Value: delimiterValue(d), Label: d.Label()})
	}
	return opts
}

// delimiterValue is the form value ParseDelimiter maps back to d.
func delimiterValue(d ingest.Delimiter) string {
	switch d {
	case ingest.DelimiterAuto:
		return "auto"
	case ingest.DelimiterTab:
		return "tab"
	}
	return string(d)
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status   string                   `json:"status"`
	Sessions int                      `json:"sessions"`
	Limiter  core.UploadLimiterStatus `json:"limiter"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Sessions: s.service.Len(),
		Limiter:  s.service.Limiter().Status(),
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.options)
}

// handleOpen reads the multipart "file" field and opens a session on it.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
		}
		s.respondError(w, r, err, 0)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: no file provided", core.ErrInvalidRequest), 0)
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		s.respondError(w, r, fmt.Errorf("%w: %d bytes", errFileTooLarge, header.Size), 0)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), 0)
		return
	}

	snap, err := s.service.Open(r.Context(), header.Filename, data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.renderSession(w, r, http.StatusCreated, snap)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.renderSession(w, r, http.StatusOK, snap)
}

type sheetInput struct {
	Sheet string `json:"sheet"`
}

func (s *Server) handleSelectSheet(w http.ResponseWriter, r *http.Request) {
	var in sheetInput
	err := bindInput(r, &in, func(form url.Values) {
		in.Sheet = form.Get("sheet")
	})
	if err == nil && in.Sheet == "" {
		err = fmt.Errorf("%w: sheet is required", core.ErrInvalidRequest)
	}
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	snap, err := s.service.SelectSheet(r.Context(), chi.URLParam(r, "sessionID"), in.Sheet)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.renderSession(w, r, http.StatusOK, snap)
}

type rereadInput struct {
	Encoding  string `json:"encoding"`
	Delimiter string `json:"delimiter"`
}

func (s *Server) handleReread(w http.ResponseWriter, r *http.Request) {
	var in rereadInput
	err := bindInput(r, &in, func(form url.Values) {
		in.Encoding = form.Get("encoding")
		in.Delimiter = form.Get("delimiter")
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	snap, err := s.service.Reread(r.Context(), chi.URLParam(r, "sessionID"), in.Encoding, in.Delimiter)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.renderSession(w, r, http.StatusOK, snap)
}

// dedupInput is the dedup request as sent by the form or as JSON:
//
//	{"scope": "columns", "columns": ["id"], "keep": "last", "trim": true}
//
// An empty scope means all columns unless columns are given.
type dedupInput struct {
	Scope   string   `json:"scope"`
	Columns []string `json:"columns"`
	Keep    string   `json:"keep"`
	Trim    bool     `json:"trim"`
}

func (in dedupInput) request() (dedup.Request, error) {
	var req dedup.Request

	switch strings.ToLower(strings.TrimSpace(in.Scope)) {
	case "all":
		req.Scope = dedup.AllColumns()
	case "columns":
		req.Scope = dedup.ColumnsScope(in.Columns...)
	case "":
		if len(in.Columns) > 0 {
			req.Scope = dedup.ColumnsScope(in.Columns...)
		} else {
			req.Scope = dedup.AllColumns()
		}
	default:
		return req, fmt.Errorf("%w: unknown scope %q", core.ErrInvalidRequest, in.Scope)
	}

	keep, err := dedup.ParseKeep(in.Keep)
	if err != nil {
		return req, fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
	}
	req.Keep = keep
	req.TrimSpace = in.Trim
	return req, nil
}

func (s *Server) handleDedup(w http.ResponseWriter, r *http.Request) {
	var in dedupInput
	err := bindInput(r, &in, func(form url.Values) {
		in.Scope = form.Get("scope")
		in.Columns = form["columns"]
		in.Keep = form.Get("keep")
		in.Trim = parseCheckbox(form.Get("trim"))
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	req, err := in.request()
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	snap, err := s.service.Deduplicate(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.renderSession(w, r, http.StatusOK, snap)
}

// handleDownload sends the export of the last dedup result as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	dl, err := s.service.Export(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(dl.Data); err != nil {
		logging.FromContext(r.Context()).Warn("download interrupted", "error", err)
	}
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if isHTMX(r) {
		// An empty 200 clears the session fragment.
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// renderSession answers with the session fragment for HTMX and JSON otherwise.
func (s *Server) renderSession(w http.ResponseWriter, r *http.Request, status int, snap *core.Snapshot) {
	if !isHTMX(r) {
		writeJSON(w, status, snap)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.SessionView(snap, s.options).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render session", "session_id", snap.ID, "error", err)
	}
}

// bindInput decodes a JSON body into dst, or parses the form and hands the
// values to fromForm.
func bindInput(r *http.Request, dst any, fromForm func(url.Values)) error {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
	}
	fromForm(r.PostForm)
	return nil
}

func parseCheckbox(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
