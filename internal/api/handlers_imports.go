package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dgallion1/jobtrail/internal/parser"
	"github.com/dgallion1/jobtrail/internal/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/lithammer/shortuuid"
)

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Imports == nil {
		jsonError(w, "imports unavailable", http.StatusServiceUnavailable)
		return
	}

	// Limit total request size; the extra 1MB covers form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("upload exceeds max size (%s)", humanize.Bytes(uint64(s.cfg.MaxUploadBytes))), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	userID := r.FormValue("user_id")
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%s)", humanize.Bytes(uint64(s.cfg.MaxUploadBytes))), http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		jsonError(w, "file is empty", http.StatusBadRequest)
		return
	}
	if _, err := parser.DetectContentType(filename, data); err != nil {
		jsonError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	force, _ := strconv.ParseBool(r.FormValue("force"))

	now := time.Now()
	job := &pipeline.Job{
		ID:            shortuuid.New(),
		UserID:        userID,
		ApplicationID: r.FormValue("application_id"),
		Company:       r.FormValue("company"),
		Role:          r.FormValue("role"),
		JobURL:        r.FormValue("job_url"),
		Force:         force,
		Status:        pipeline.StatusQueued,
		Phase:         "queued",
		Filename:      filename,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	job.SetFileData(data)

	if err := s.deps.Imports.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.log.Info("import queued",
		"job_id", job.ID,
		"user_id", userID,
		"filename", filename,
		"size", humanize.Bytes(uint64(len(data))),
	)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/imports/%s/status", job.ID),
	})
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Imports == nil {
		jsonError(w, "imports unavailable", http.StatusServiceUnavailable)
		return
	}
	job := s.deps.Imports.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	if uid := r.URL.Query().Get("user_id"); uid != "" && uid != snap.UserID {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
