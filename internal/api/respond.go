package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/jobtrail/internal/applications"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decodeJSON reads a JSON body of at most limit bytes into dst. It writes the
// error response itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeServiceError maps application service errors to status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *applications.InvalidError
	switch {
	case errors.As(err, &invalid):
		fields := make(map[string]string, len(invalid.Fields))
		for k, v := range invalid.Fields {
			fields[k] = v.Error()
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": fields,
		})
	case errors.Is(err, applications.ErrNotFound):
		jsonError(w, "application not found", http.StatusNotFound)
	case errors.Is(err, applications.ErrInvalid):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		s.log.Error("application request failed", "path", r.URL.Path, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
