package api

import (
	"net/http"
	"strconv"

	"github.com/dgallion1/jobtrail/internal/applications"
	"github.com/go-chi/chi/v5"
)

const maxApplicationBody = 1 << 20

// userID reads the caller's user from the query string. Every application
// route is scoped by it.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("user_id")
	if id == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	filter := applications.ListFilter{Limit: queryLimit(r)}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := applications.ParseStatus(raw)
		if !ok {
			jsonError(w, "unknown status: "+raw, http.StatusBadRequest)
			return
		}
		filter.Status = st
	}

	apps, err := s.deps.Applications.List(r.Context(), uid, filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if apps == nil {
		apps = []applications.Application{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applications": apps,
		"count":        len(apps),
	})
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var in applications.CreateInput
	if !decodeJSON(w, r, maxApplicationBody, &in) {
		return
	}
	if in.UserID == "" {
		in.UserID = r.URL.Query().Get("user_id")
	}
	if in.UserID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	app, err := s.deps.Applications.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	app, err := s.deps.Applications.Get(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var p applications.Patch
	if !decodeJSON(w, r, maxApplicationBody, &p) {
		return
	}
	app, err := s.deps.Applications.Update(r.Context(), uid, chi.URLParam(r, "id"), p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Applications.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, maxApplicationBody, &req) {
		return
	}
	st, ok := applications.ParseStatus(req.Status)
	if !ok {
		jsonError(w, "unknown status: "+req.Status, http.StatusBadRequest)
		return
	}
	app, err := s.deps.Applications.SetStatus(r.Context(), uid, chi.URLParam(r, "id"), st, req.Note)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	events, err := s.deps.Applications.Events(r.Context(), uid, chi.URLParam(r, "id"), queryLimit(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []applications.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
