package api

import (
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stages":        s.orchestrator.Stats().Snapshot(),
		"queue_depth":   s.orchestrator.QueueDepth(),
		"jobs":          s.orchestrator.JobCount(),
		"pdf_converter": s.converterAvailable(),
	})
}
