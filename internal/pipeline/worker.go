package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/jobtrail/internal/applications"
	"github.com/dgallion1/jobtrail/internal/assistant"
	"github.com/dgallion1/jobtrail/internal/filestore"
	"github.com/dgallion1/jobtrail/internal/parser"
)

// Worker processes a single import job.
type Worker struct {
	deps      Deps
	parseOpts parser.Options
	log       *slog.Logger

	backoff func(attempt int) time.Duration
}

func NewWorker(deps Deps, parseOpts parser.Options, log *slog.Logger) *Worker {
	return &Worker{
		deps:      deps,
		parseOpts: parseOpts,
		log:       log,
		backoff:   Backoff,
	}
}

// Process runs the full import pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "user_id", job.UserID, "filename", job.Filename)
	data := job.FileData()

	// Phase 1: keep the original upload. Failure here is not fatal.
	var sourceKey string
	if w.deps.Uploads != nil {
		job.SetStatus(StatusStoringUpload, "storing upload")
		key, err := filestore.ImportKey(job.UserID, job.ID, job.Filename)
		if err == nil {
			contentType, _ := parser.DetectContentType(job.Filename, data)
			err = w.deps.Uploads.Put(ctx, key, data, contentType)
		}
		if err != nil {
			log.Warn("upload store failed, continuing", "error", err)
			job.AddError(fmt.Sprintf("upload: %s", err))
		} else {
			sourceKey = key
			job.setResult(func(j *Job) { j.SourceKey = key })
		}
	}

	// Phase 2: parse.
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, w.parseOpts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	tree, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	plain := tree.PlainText()
	if strings.TrimSpace(plain) == "" {
		log.Warn("no text in document")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	hash := ContentHashHex([]byte(plain))
	job.setResult(func(j *Job) { j.ContentHash = hash })

	// Phase 2.5: dedup against earlier imports.
	if !job.Force {
		existing, err := w.deps.Applications.FindByContentHash(ctx, job.UserID, hash)
		switch {
		case errors.Is(err, applications.ErrNotFound):
		case err != nil:
			log.Warn("dedup check failed, proceeding", "error", err)
		case existing.ID != job.ApplicationID:
			log.Info("duplicate document, skipping", "existing_application_id", existing.ID)
			job.setResult(func(j *Job) { j.DuplicateOf = existing.ID })
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 3: extract posting fields.
	var posting *assistant.Posting
	if w.deps.Extractor != nil {
		job.SetStatus(StatusExtracting, "extracting")
		posting, err = w.extract(ctx, log, plain)
		if err != nil {
			if ctx.Err() != nil {
				job.AddError(fmt.Sprintf("extract: %s", ctx.Err()))
				job.SetStatus(StatusFailed, "extracting")
				return
			}
			log.Error("extraction failed, continuing with form fields", "error", err)
			job.AddError(fmt.Sprintf("extract: %s", err))
		}
	}

	// Phase 4: format the document as bullet text.
	job.SetStatus(StatusFormatting, "formatting")
	description := tree.BulletText()
	if description == "" && posting != nil {
		description = posting.Bullets()
	}

	// Phase 5: save.
	job.SetStatus(StatusSaving, "saving")
	fallback := strings.TrimSuffix(job.Filename, filepath.Ext(job.Filename))
	company := firstNonEmpty(job.Company, postingField(posting, func(p *assistant.Posting) string { return p.Company }), fallback)
	role := firstNonEmpty(job.Role, postingField(posting, func(p *assistant.Posting) string { return p.Role }), fallback)

	var app *applications.Application
	if job.ApplicationID != "" {
		patch := applications.Patch{
			Description: &description,
			ContentHash: &hash,
		}
		if sourceKey != "" {
			patch.SourceKey = &sourceKey
		}
		if job.Company != "" {
			patch.Company = &job.Company
		}
		if job.Role != "" {
			patch.Role = &job.Role
		}
		if job.JobURL != "" {
			patch.JobURL = &job.JobURL
		}
		app, err = w.deps.Applications.Update(ctx, job.UserID, job.ApplicationID, patch)
	} else {
		in := applications.CreateInput{
			UserID:      job.UserID,
			Company:     company,
			Role:        role,
			Status:      applications.StatusWishlist,
			JobURL:      job.JobURL,
			Description: description,
			SourceKey:   sourceKey,
			ContentHash: hash,
		}
		if posting != nil {
			in.Location = posting.Location
			in.Salary = posting.Salary
			if posting.Summary != "" {
				in.Notes = "• " + posting.Summary
			}
		}
		app, err = w.deps.Applications.Create(ctx, in)
	}
	if err != nil {
		log.Error("save failed", "error", err)
		job.AddError(fmt.Sprintf("save: %s", err))
		job.SetStatus(StatusFailed, "saving")
		return
	}

	w.deps.Applications.RecordEvent(ctx, app, applications.EventImported, job.Filename)
	job.setResult(func(j *Job) { j.ResultID = app.ID })
	log.Info("import saved", "application_id", app.ID, "description_bytes", len(description))

	if job.HasErrors() {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// extract calls the extractor, retrying transient failures with backoff.
func (w *Worker) extract(ctx context.Context, log *slog.Logger, text string) (*assistant.Posting, error) {
	var lastErr error
	for attempt := range MaxRetries {
		posting, err := w.deps.Extractor.ExtractPosting(ctx, text)
		if err == nil {
			return posting, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable extraction error", "attempt", attempt, "error", err)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func postingField(p *assistant.Posting, get func(*assistant.Posting) string) string {
	if p == nil {
		return ""
	}
	return get(p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
