package api

import (
	"net/http"

	"github.com/dgallion1/jobtrail/internal/bullets"
	"github.com/dgallion1/jobtrail/internal/sanitize"
)

type formatRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if !decodeJSON(w, r, s.cfg.MaxFormatBytes+1024, &req) {
		return
	}
	if int64(len(req.Text)) > s.cfg.MaxFormatBytes {
		jsonError(w, "text exceeds max size", http.StatusRequestEntityTooLarge)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"html": sanitize.BulletHTML(bullets.ToHTML(req.Text)),
	})
}
