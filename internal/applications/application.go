package applications

import (
	"errors"
	"time"
)

// Status is where an application sits in the hiring funnel.
type Status string

const (
	StatusWishlist     Status = "wishlist"
	StatusApplied      Status = "applied"
	StatusInterviewing Status = "interviewing"
	StatusOffer        Status = "offer"
	StatusRejected     Status = "rejected"
	StatusWithdrawn    Status = "withdrawn"
)

// Statuses lists every valid status in funnel order.
var Statuses = []Status{
	StatusWishlist,
	StatusApplied,
	StatusInterviewing,
	StatusOffer,
	StatusRejected,
	StatusWithdrawn,
}

// Event types recorded in an application's history.
const (
	EventCreated       = "created"
	EventUpdated       = "updated"
	EventStatusChanged = "status_changed"
	EventImported      = "imported"
)

var (
	ErrNotFound = errors.New("application not found")
	ErrInvalid  = errors.New("invalid application")
)

// Application is one tracked job application. Notes and Description hold
// the user's bullet text; the HTML fields are rendered from them on every
// write.
type Application struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	Company  string `json:"company"`
	Role     string `json:"role"`
	Status   Status `json:"status"`
	JobURL   string `json:"job_url,omitempty"`
	Location string `json:"location,omitempty"`
	Salary   string `json:"salary,omitempty"`

	Notes           string `json:"notes"`
	NotesHTML       string `json:"notes_html"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html"`

	// Set by document imports.
	SourceKey   string `json:"source_key,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`

	AppliedAt *time.Time `json:"applied_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Event is an entry in an application's activity history.
type Event struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"`
	Details       string    `json:"details,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Status Status
	Limit  int
}
