package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of an import job.
type JobStatus string

const (
	StatusQueued        JobStatus = "queued"
	StatusStoringUpload JobStatus = "storing_upload"
	StatusParsing       JobStatus = "parsing"
	StatusExtracting    JobStatus = "extracting"
	StatusFormatting    JobStatus = "formatting"
	StatusSaving        JobStatus = "saving"
	StatusCompleted     JobStatus = "completed"
	StatusFailed        JobStatus = "failed"
	StatusPartial       JobStatus = "partial"
	StatusDupSkipped    JobStatus = "duplicate_skipped"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusDupSkipped:
		return true
	}
	return false
}

// Job tracks the state of a single document import.
type Job struct {
	mu sync.Mutex

	ID     string `json:"job_id"`
	UserID string `json:"user_id"`

	// Optional form fields. ApplicationID targets an existing application;
	// Company and Role override what extraction finds.
	ApplicationID string `json:"application_id,omitempty"`
	Company       string `json:"company,omitempty"`
	Role          string `json:"role,omitempty"`
	JobURL        string `json:"job_url,omitempty"`
	Force         bool   `json:"force"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	ContentHash string    `json:"content_hash,omitempty"`
	SourceKey   string    `json:"source_key,omitempty"`
	ResultID    string    `json:"result_application_id,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs that have not changed within the TTL.
// Jobs still in flight are kept regardless of age.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Done() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	if status.Done() {
		j.fileData = nil
	}
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// HasErrors reports whether any error was recorded.
func (j *Job) HasErrors() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.errors) > 0
}

// setResult records fields produced while processing.
func (j *Job) setResult(fn func(j *Job)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(j)
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID            string    `json:"job_id"`
	UserID        string    `json:"user_id"`
	ApplicationID string    `json:"application_id,omitempty"`
	Status        JobStatus `json:"status"`
	Phase         string    `json:"phase"`
	Filename      string    `json:"filename"`
	ContentHash   string    `json:"content_hash,omitempty"`
	SourceKey     string    `json:"source_key,omitempty"`
	ResultID      string    `json:"result_application_id,omitempty"`
	DuplicateOf   string    `json:"duplicate_of,omitempty"`
	Errors        []string  `json:"errors"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	return JobSnapshot{
		ID:            j.ID,
		UserID:        j.UserID,
		ApplicationID: j.ApplicationID,
		Status:        j.Status,
		Phase:         j.Phase,
		Filename:      j.Filename,
		ContentHash:   j.ContentHash,
		SourceKey:     j.SourceKey,
		ResultID:      j.ResultID,
		DuplicateOf:   j.DuplicateOf,
		Errors:        errs,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
