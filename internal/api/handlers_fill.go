package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docfill/internal/parser"
	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

type uploadError struct {
	code int
	msg  string
}

func (e *uploadError) Error() string { return e.msg }

// readUpload reads one multipart file field, enforcing the upload limit.
func (s *Server) readUpload(r *http.Request, field string, allowed func(string) bool) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", &uploadError{http.StatusBadRequest, field + " is required: " + err.Error()}
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !allowed(filename) {
		return nil, "", &uploadError{http.StatusBadRequest, fmt.Sprintf("unsupported %s type: %s", field, filepath.Ext(filename))}
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, "", &uploadError{http.StatusInternalServerError, "failed to read " + field}
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, "", &uploadError{http.StatusRequestEntityTooLarge, fmt.Sprintf("%s exceeds max size (%d bytes)", field, s.cfg.MaxUploadBytes)}
	}
	return data, filename, nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	var ue *uploadError
	if errors.As(err, &ue) {
		jsonError(w, ue.msg, ue.code)
		return
	}
	jsonError(w, err.Error(), http.StatusBadRequest)
}

func isDocx(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".docx")
}

// formBool reads an optional true/false form field.
func formBool(r *http.Request, key string) (value, set bool, err error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return false, false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false, fmt.Errorf("%s must be true or false", key)
	}
	return b, true, nil
}

func (s *Server) handleFill(w http.ResponseWriter, r *http.Request) {
	// Two files plus form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	tplData, tplName, err := s.readUpload(r, "template", isDocx)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	data, dataName, err := s.readUpload(r, "data", parser.IsSupportedExtension)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	compact, compactSet, err := formBool(r, "compact")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !compactSet {
		compact = s.cfg.IsCompactTemplate(tplName)
	}
	pdf, pdfSet, err := formBool(r, "pdf")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !pdfSet {
		pdf = s.cfg.ConvertPDF
	}
	merge, _, err := formBool(r, "merge")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if merge {
		pdf = true
	}
	if pdf && !s.converterAvailable() {
		jsonError(w, "pdf conversion requested but no converter is available", http.StatusServiceUnavailable)
		return
	}

	job := pipeline.NewJob(tplName, dataName, "")
	job.Compact = compact
	job.PDF = pdf
	if merge {
		job.Package = pipeline.PackageMerge
	}
	job.SetInputs(tplData, data)

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.log.Info("fill job queued", "job_id", job.ID, "template", tplName, "data", dataName, "compact", compact, "pdf", pdf, "merge", merge)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"compact":  compact,
		"pdf":      pdf,
		"poll_url": fmt.Sprintf("/api/fill/%s/status", job.ID),
	})
}

func (s *Server) jobFromURL(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

func (s *Server) handleFillStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromURL(w, r)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	resp := map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"phase":    snap.Phase,
		"template": snap.TemplateName,
		"data":     snap.DataName,
		"compact":  snap.Compact,
		"pdf":      snap.PDF,
		"progress": snap.Progress,
	}
	if snap.Downloadable {
		resp["download_url"] = fmt.Sprintf("/api/fill/%s/download", snap.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromURL(w, r)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	if !snap.Status.Done() {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}
	path := job.ResultPath()
	if path == "" {
		jsonError(w, "job produced no downloadable result", http.StatusNotFound)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.log.Error("open job result", "job_id", snap.ID, "error", err)
		jsonError(w, "result is no longer available", http.StatusGone)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		jsonError(w, "result is no longer available", http.StatusGone)
		return
	}

	name := filepath.Base(path)
	if filepath.Ext(name) == ".pdf" {
		w.Header().Set("Content-Type", "application/pdf")
	} else {
		w.Header().Set("Content-Type", "application/zip")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// sanitizeFilename keeps only a safe base name of an uploaded file.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	return pipeline.SanitizeFilename(filepath.Base(name), "unnamed")
}
