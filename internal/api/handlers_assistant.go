package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/dgallion1/jobtrail/internal/assistant"
	"github.com/dgallion1/jobtrail/internal/bullets"
	"github.com/dgallion1/jobtrail/internal/parser"
	"github.com/dgallion1/jobtrail/internal/sanitize"
	"github.com/dgallion1/jobtrail/internal/scrape"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxAssistantBody = 512 << 10

type chatRequest struct {
	Messages []assistant.Message `json:"messages"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.Assistant == nil {
		jsonError(w, "assistant not configured", http.StatusServiceUnavailable)
		return
	}
	var req chatRequest
	if !decodeJSON(w, r, maxAssistantBody, &req) {
		return
	}
	reply, err := s.deps.Assistant.Chat(r.Context(), req.Messages)
	if err != nil {
		s.writeAssistantError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reply": reply,
		"html":  sanitize.BulletHTML(bullets.ToHTML(reply)),
	})
}

type extractPostingRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleExtractPosting(w http.ResponseWriter, r *http.Request) {
	if s.deps.Assistant == nil {
		jsonError(w, "assistant not configured", http.StatusServiceUnavailable)
		return
	}
	var req extractPostingRequest
	if !decodeJSON(w, r, maxAssistantBody, &req) {
		return
	}
	posting, err := s.deps.Assistant.ExtractPosting(r.Context(), req.Text)
	if err != nil {
		s.writeAssistantError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posting":           posting,
		"requirements_html": sanitize.BulletHTML(bullets.ToHTML(posting.Bullets())),
	})
}

type extractProfileRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleExtractProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Assistant == nil || s.deps.Profiles == nil {
		jsonError(w, "profile extraction not configured", http.StatusServiceUnavailable)
		return
	}
	var req extractProfileRequest
	if !decodeJSON(w, r, maxAssistantBody, &req) {
		return
	}
	// Reject bad URLs before spending a scrape call.
	if _, err := scrape.NormalizeProfileURL(req.URL); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := s.deps.Profiles.FetchProfile(r.Context(), req.URL)
	if err != nil {
		s.log.Warn("profile fetch failed", "url", req.URL, "error", err)
		jsonError(w, "profile fetch failed", http.StatusBadGateway)
		return
	}
	tree, err := (&parser.HTMLParser{}).Parse(bytes.NewReader(page), "profile.html")
	if err != nil {
		jsonError(w, "profile page could not be parsed", http.StatusBadGateway)
		return
	}

	profile, err := s.deps.Assistant.ExtractProfile(r.Context(), tree.PlainText())
	if err != nil {
		s.writeAssistantError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

// writeAssistantError maps assistant errors to status codes. Caller mistakes
// are 400, replies that fail validation are 422, and upstream trouble is 502.
func (s *Server) writeAssistantError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors
	var retryable *assistant.RetryableError
	switch {
	case errors.Is(err, assistant.ErrBadHistory), errors.Is(err, assistant.ErrNoContent):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &verrs), errors.Is(err, assistant.ErrMalformedReply):
		s.log.Warn("assistant reply rejected", "path", r.URL.Path, "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &retryable):
		s.log.Warn("assistant upstream busy", "path", r.URL.Path, "status", retryable.StatusCode)
		w.Header().Set("Retry-After", "5")
		jsonError(w, "assistant temporarily unavailable", http.StatusServiceUnavailable)
	default:
		s.log.Error("assistant request failed", "path", r.URL.Path, "error", err)
		jsonError(w, "assistant request failed", http.StatusBadGateway)
	}
}
