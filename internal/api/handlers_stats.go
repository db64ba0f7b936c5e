package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Assistant == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"model": s.deps.Assistant.Model(),
		"stats": s.deps.Assistant.StatsSnapshot(),
	})
}
