package api

import (
	"net/http"
	"path/filepath"

	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleFillResults lists the per-record outcomes of a job.
func (s *Server) handleFillResults(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromURL(w, r)
	if job == nil {
		return
	}
	results := job.Results()
	// Expose file names only, never server paths.
	for i := range results {
		if results[i].Docx != "" {
			results[i].Docx = filepath.Base(results[i].Docx)
		}
		if results[i].PDF != "" {
			results[i].PDF = filepath.Base(results[i].PDF)
		}
	}
	if results == nil {
		results = []pipeline.RecordResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":  job.ID,
		"status":  job.Snapshot().Status,
		"results": results,
	})
}

// handleDeleteJob discards a finished job and its files.
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(id)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	removed, err := s.orchestrator.Remove(id)
	if err != nil {
		s.log.Warn("delete job", "job_id", id, "error", err)
	}
	if !removed {
		jsonError(w, "job is still running", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": id, "deleted": true})
}
