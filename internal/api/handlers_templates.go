package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/docfill/internal/fill"
)

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	data, name, err := s.readUpload(r, "template", isDocx)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	placeholders, err := fill.InspectBytes(data)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, fill.ErrMalformedDocument) {
			code = http.StatusUnprocessableEntity
		}
		jsonError(w, err.Error(), code)
		return
	}
	if placeholders == nil {
		placeholders = []fill.PlaceholderInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"template":     name,
		"compact":      s.cfg.IsCompactTemplate(name),
		"placeholders": placeholders,
	})
}
