package applications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/jobtrail/internal/bullets"
	"github.com/dgallion1/jobtrail/internal/sanitize"
	"github.com/google/uuid"
)

// Repository persists applications and their events. Lookups of missing
// rows return ErrNotFound.
type Repository interface {
	InsertApplication(ctx context.Context, app *Application) (*Application, error)
	GetApplication(ctx context.Context, userID, id string) (*Application, error)
	ListApplications(ctx context.Context, userID string, filter ListFilter) ([]Application, error)
	UpdateApplication(ctx context.Context, app *Application) (*Application, error)
	DeleteApplication(ctx context.Context, userID, id string) error
	FindByContentHash(ctx context.Context, userID, hash string) (*Application, error)

	InsertEvent(ctx context.Context, ev *Event) error
	ListEvents(ctx context.Context, userID, applicationID string, limit int) ([]Event, error)
}

// CreateInput holds the caller-supplied fields of a new application.
type CreateInput struct {
	UserID      string     `json:"user_id"`
	Company     string     `json:"company"`
	Role        string     `json:"role"`
	Status      Status     `json:"status"`
	JobURL      string     `json:"job_url"`
	Location    string     `json:"location"`
	Salary      string     `json:"salary"`
	Notes       string     `json:"notes"`
	Description string     `json:"description"`
	AppliedAt   *time.Time `json:"applied_at"`

	SourceKey   string `json:"-"`
	ContentHash string `json:"-"`
}

// Patch updates only the non-nil fields.
type Patch struct {
	Company     *string    `json:"company"`
	Role        *string    `json:"role"`
	JobURL      *string    `json:"job_url"`
	Location    *string    `json:"location"`
	Salary      *string    `json:"salary"`
	Notes       *string    `json:"notes"`
	Description *string    `json:"description"`
	AppliedAt   *time.Time `json:"applied_at"`

	SourceKey   *string `json:"-"`
	ContentHash *string `json:"-"`
}

// Service applies business rules on top of a Repository.
type Service struct {
	repo Repository
	log  *slog.Logger
	ids  *eventIDs
	now  func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		ids:  newEventIDs(time.Now),
		now:  time.Now,
	}
}

// Create validates and stores a new application and records a "created" event.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Application, error) {
	now := s.now().UTC()
	status := in.Status
	if status == "" {
		status = StatusApplied
	}
	app := &Application{
		ID:          uuid.NewString(),
		UserID:      strings.TrimSpace(in.UserID),
		Company:     strings.TrimSpace(in.Company),
		Role:        strings.TrimSpace(in.Role),
		Status:      status,
		JobURL:      strings.TrimSpace(in.JobURL),
		Location:    strings.TrimSpace(in.Location),
		Salary:      strings.TrimSpace(in.Salary),
		Notes:       in.Notes,
		Description: in.Description,
		SourceKey:   in.SourceKey,
		ContentHash: in.ContentHash,
		AppliedAt:   in.AppliedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if app.AppliedAt == nil && app.Status == StatusApplied {
		app.AppliedAt = &now
	}
	render(app)

	if err := app.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.repo.InsertApplication(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("insert application: %w", err)
	}
	s.record(ctx, stored, EventCreated, fmt.Sprintf("%s at %s", stored.Role, stored.Company))
	return stored, nil
}

// Get returns one application owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (*Application, error) {
	return s.repo.GetApplication(ctx, userID, id)
}

// List returns the user's applications, newest first.
func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Application, error) {
	if filter.Status != "" {
		if err := validStatus(filter.Status); err != nil {
			return nil, &InvalidError{Fields: map[string]error{"status": err}}
		}
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 200
	}
	return s.repo.ListApplications(ctx, userID, filter)
}

// Update applies a patch and records an "updated" event naming the changed
// fields. A patch that changes nothing is not written.
func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (*Application, error) {
	app, err := s.repo.GetApplication(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	set := func(name string, dst *string, src *string, trim bool) {
		if src == nil {
			return
		}
		v := *src
		if trim {
			v = strings.TrimSpace(v)
		}
		if *dst != v {
			*dst = v
			changed = append(changed, name)
		}
	}
	set("company", &app.Company, p.Company, true)
	set("role", &app.Role, p.Role, true)
	set("job_url", &app.JobURL, p.JobURL, true)
	set("location", &app.Location, p.Location, true)
	set("salary", &app.Salary, p.Salary, true)
	set("notes", &app.Notes, p.Notes, false)
	set("description", &app.Description, p.Description, false)
	set("source_key", &app.SourceKey, p.SourceKey, false)
	set("content_hash", &app.ContentHash, p.ContentHash, false)
	if p.AppliedAt != nil && (app.AppliedAt == nil || !app.AppliedAt.Equal(*p.AppliedAt)) {
		at := p.AppliedAt.UTC()
		app.AppliedAt = &at
		changed = append(changed, "applied_at")
	}

	if len(changed) == 0 {
		return app, nil
	}

	app.UpdatedAt = s.now().UTC()
	render(app)
	if err := app.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.repo.UpdateApplication(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	s.record(ctx, stored, EventUpdated, strings.Join(changed, ","))
	return stored, nil
}

// SetStatus moves an application through the funnel. Moving to "applied"
// for the first time stamps AppliedAt. The note, if any, is kept in the
// event details.
func (s *Service) SetStatus(ctx context.Context, userID, id string, status Status, note string) (*Application, error) {
	if err := validStatus(status); err != nil {
		return nil, &InvalidError{Fields: map[string]error{"status": err}}
	}
	app, err := s.repo.GetApplication(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if app.Status == status {
		return app, nil
	}

	from := app.Status
	now := s.now().UTC()
	app.Status = status
	app.UpdatedAt = now
	if status == StatusApplied && app.AppliedAt == nil {
		app.AppliedAt = &now
	}

	stored, err := s.repo.UpdateApplication(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	details := fmt.Sprintf("%s -> %s", from, status)
	if note = strings.TrimSpace(note); note != "" {
		details += ": " + note
	}
	s.record(ctx, stored, EventStatusChanged, details)
	return stored, nil
}

// Delete removes an application. Its events go with it in the backend.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.DeleteApplication(ctx, userID, id)
}

// Events returns the application's history, newest first.
func (s *Service) Events(ctx context.Context, userID, id string, limit int) ([]Event, error) {
	if _, err := s.repo.GetApplication(ctx, userID, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListEvents(ctx, userID, id, limit)
}

// FindByContentHash returns the user's application imported from identical
// content, or ErrNotFound.
func (s *Service) FindByContentHash(ctx context.Context, userID, hash string) (*Application, error) {
	return s.repo.FindByContentHash(ctx, userID, hash)
}

// RecordEvent appends an event to the application's history. Failures are
// logged, not returned; history is advisory.
func (s *Service) RecordEvent(ctx context.Context, app *Application, eventType, details string) {
	s.record(ctx, app, eventType, details)
}

func (s *Service) record(ctx context.Context, app *Application, eventType, details string) {
	ev := &Event{
		ID:            s.ids.next(),
		ApplicationID: app.ID,
		UserID:        app.UserID,
		Type:          eventType,
		Details:       details,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn("event write failed", "application_id", app.ID, "type", eventType, "error", err)
	}
}

// render refreshes the HTML fields from their bullet text.
func render(app *Application) {
	app.NotesHTML = sanitize.BulletHTML(bullets.ToHTML(app.Notes))
	app.DescriptionHTML = sanitize.BulletHTML(bullets.ToHTML(app.Description))
}
