package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/jobtrail/internal/applications"
	"github.com/dgallion1/jobtrail/internal/assistant"
	"github.com/dgallion1/jobtrail/internal/config"
	"github.com/dgallion1/jobtrail/internal/parser"
)

type fakeApps struct {
	mu      sync.Mutex
	apps    map[string]*applications.Application
	created []applications.CreateInput
	patches []applications.Patch
	events  []string
	saveErr error
}

func newFakeApps() *fakeApps {
	return &fakeApps{apps: map[string]*applications.Application{}}
}

func (f *fakeApps) Create(_ context.Context, in applications.CreateInput) (*applications.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.created = append(f.created, in)
	app := &applications.Application{
		ID:          "app-" + in.ContentHash[:8],
		UserID:      in.UserID,
		Company:     in.Company,
		Role:        in.Role,
		Description: in.Description,
		ContentHash: in.ContentHash,
		SourceKey:   in.SourceKey,
	}
	f.apps[app.ID] = app
	return app, nil
}

func (f *fakeApps) Update(_ context.Context, userID, id string, p applications.Patch) (*applications.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	app, ok := f.apps[id]
	if !ok || app.UserID != userID {
		return nil, applications.ErrNotFound
	}
	f.patches = append(f.patches, p)
	if p.Description != nil {
		app.Description = *p.Description
	}
	if p.ContentHash != nil {
		app.ContentHash = *p.ContentHash
	}
	if p.Company != nil {
		app.Company = *p.Company
	}
	return app, nil
}

func (f *fakeApps) FindByContentHash(_ context.Context, userID, hash string) (*applications.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, app := range f.apps {
		if app.UserID == userID && app.ContentHash == hash {
			return app, nil
		}
	}
	return nil, applications.ErrNotFound
}

func (f *fakeApps) RecordEvent(_ context.Context, app *applications.Application, eventType, details string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType+":"+details)
}

type fakeExtractor struct {
	calls   int
	errs    []error
	posting *assistant.Posting
}

func (f *fakeExtractor) ExtractPosting(_ context.Context, text string) (*assistant.Posting, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.posting, nil
}

type fakeUploads struct {
	keys []string
	err  error
}

func (f *fakeUploads) Put(_ context.Context, key string, data []byte, contentType string) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return nil
}

const postingMD = `# Platform Engineer

## Responsibilities

- Run the build farm
- Mentor
  - juniors
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newJob(filename, content string) *Job {
	job := &Job{
		ID:        "job-1",
		UserID:    "u1",
		Status:    StatusQueued,
		Filename:  filename,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	job.SetFileData([]byte(content))
	return job
}

func newTestWorker(deps Deps) *Worker {
	w := NewWorker(deps, parser.Options{}, discardLogger())
	w.backoff = func(int) time.Duration { return 0 }
	return w
}

func TestWorker_CreatesApplication(t *testing.T) {
	apps := newFakeApps()
	ext := &fakeExtractor{posting: &assistant.Posting{Company: "Acme", Role: "Platform Engineer", Location: "Remote", Summary: "Build farm owner."}}
	uploads := &fakeUploads{}
	w := newTestWorker(Deps{Applications: apps, Extractor: ext, Uploads: uploads})

	job := newJob("acme.md", postingMD)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (errors %v)", snap.Status, snap.Errors)
	}
	if len(uploads.keys) != 1 || uploads.keys[0] != "users/u1/imports/job-1/acme.md" {
		t.Errorf("unexpected upload keys %v", uploads.keys)
	}
	if len(apps.created) != 1 {
		t.Fatalf("expected one created application, got %d", len(apps.created))
	}
	in := apps.created[0]
	if in.Company != "Acme" || in.Role != "Platform Engineer" || in.Location != "Remote" {
		t.Errorf("unexpected create input %+v", in)
	}
	wantDesc := "• Platform Engineer\n  • Responsibilities\n    • Run the build farm\n    • Mentor\n      • juniors"
	if in.Description != wantDesc {
		t.Errorf("expected description:\n%s\ngot:\n%s", wantDesc, in.Description)
	}
	if in.SourceKey != uploads.keys[0] || in.ContentHash == "" {
		t.Errorf("expected source key and hash, got %+v", in)
	}
	if in.Status != applications.StatusWishlist {
		t.Errorf("expected wishlist status, got %s", in.Status)
	}
	if snap.ResultID == "" {
		t.Error("expected result application id")
	}
	if len(apps.events) != 1 || apps.events[0] != "imported:acme.md" {
		t.Errorf("unexpected events %v", apps.events)
	}
}

func TestWorker_FormFieldsWin(t *testing.T) {
	apps := newFakeApps()
	ext := &fakeExtractor{posting: &assistant.Posting{Company: "Extracted Co", Role: "Extracted Role"}}
	w := newTestWorker(Deps{Applications: apps, Extractor: ext})

	job := newJob("posting.txt", "We are hiring.")
	job.Company = "Form Co"
	w.Process(context.Background(), job)

	in := apps.created[0]
	if in.Company != "Form Co" || in.Role != "Extracted Role" {
		t.Errorf("unexpected company/role %q/%q", in.Company, in.Role)
	}
}

func TestWorker_NoExtractorFallsBackToFilename(t *testing.T) {
	apps := newFakeApps()
	w := newTestWorker(Deps{Applications: apps})

	job := newJob("acme-sre.txt", "Keep the lights on.")
	w.Process(context.Background(), job)

	if job.Snapshot().Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", job.Snapshot().Status)
	}
	in := apps.created[0]
	if in.Company != "acme-sre" || in.Role != "acme-sre" {
		t.Errorf("expected filename fallback, got %q/%q", in.Company, in.Role)
	}
	if in.SourceKey != "" {
		t.Errorf("expected no source key without uploads, got %q", in.SourceKey)
	}
}

func TestWorker_DuplicateSkipped(t *testing.T) {
	apps := newFakeApps()
	w := newTestWorker(Deps{Applications: apps})

	w.Process(context.Background(), newJob("a.txt", "Same posting text."))
	first := apps.created[0]

	dup := newJob("b.txt", "Same posting text.")
	dup.ID = "job-2"
	w.Process(context.Background(), dup)

	snap := dup.Snapshot()
	if snap.Status != StatusDupSkipped {
		t.Fatalf("expected duplicate_skipped, got %s", snap.Status)
	}
	if snap.DuplicateOf != "app-"+first.ContentHash[:8] {
		t.Errorf("unexpected duplicate_of %q", snap.DuplicateOf)
	}
	if len(apps.created) != 1 {
		t.Errorf("expected no second application, got %d", len(apps.created))
	}
}

func TestWorker_ForceBypassesDedup(t *testing.T) {
	apps := newFakeApps()
	w := newTestWorker(Deps{Applications: apps})

	w.Process(context.Background(), newJob("a.txt", "Same posting text."))
	again := newJob("a.txt", "Same posting text.")
	again.Force = true
	w.Process(context.Background(), again)

	if again.Snapshot().Status != StatusCompleted {
		t.Errorf("expected completed with force, got %s", again.Snapshot().Status)
	}
	if len(apps.created) != 2 {
		t.Errorf("expected two creates, got %d", len(apps.created))
	}
}

func TestWorker_UpdatesTargetApplication(t *testing.T) {
	apps := newFakeApps()
	apps.apps["target"] = &applications.Application{ID: "target", UserID: "u1", Company: "Acme", Role: "SRE"}
	w := newTestWorker(Deps{Applications: apps})

	job := newJob("jd.txt", "Own the pager.")
	job.ApplicationID = "target"
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted || snap.ResultID != "target" {
		t.Fatalf("expected completed update of target, got %+v", snap)
	}
	if len(apps.created) != 0 {
		t.Error("expected no create when targeting an application")
	}
	p := apps.patches[0]
	if p.Description == nil || *p.Description != "• Own the pager." {
		t.Errorf("unexpected description patch %v", p.Description)
	}
	if p.Company != nil || p.Role != nil {
		t.Error("expected company and role untouched without form values")
	}

	// Re-importing the same content into the same application is not a duplicate.
	again := newJob("jd.txt", "Own the pager.")
	again.ApplicationID = "target"
	w.Process(context.Background(), again)
	if again.Snapshot().Status != StatusCompleted {
		t.Errorf("expected completed re-import, got %s", again.Snapshot().Status)
	}
}

func TestWorker_MissingTargetFails(t *testing.T) {
	w := newTestWorker(Deps{Applications: newFakeApps()})
	job := newJob("jd.txt", "text")
	job.ApplicationID = "nope"
	w.Process(context.Background(), job)
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("expected failed, got %s", job.Snapshot().Status)
	}
}

func TestWorker_RetriesThenPartial(t *testing.T) {
	apps := newFakeApps()
	retryable := &assistant.RetryableError{StatusCode: 529}
	ext := &fakeExtractor{errs: []error{retryable, retryable, retryable}}
	w := newTestWorker(Deps{Applications: apps, Extractor: ext})

	job := newJob("jd.txt", "Posting body.")
	job.Company, job.Role = "Acme", "SRE"
	w.Process(context.Background(), job)

	if ext.calls != MaxRetries {
		t.Errorf("expected %d attempts, got %d", MaxRetries, ext.calls)
	}
	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected partial, got %s", snap.Status)
	}
	if len(snap.Errors) != 1 || !strings.HasPrefix(snap.Errors[0], "extract:") {
		t.Errorf("unexpected errors %v", snap.Errors)
	}
	if apps.created[0].Company != "Acme" {
		t.Error("expected form company used after extraction failure")
	}
}

func TestWorker_RetrySucceeds(t *testing.T) {
	ext := &fakeExtractor{
		errs:    []error{&assistant.RetryableError{StatusCode: 429}},
		posting: &assistant.Posting{Company: "Acme", Role: "SRE"},
	}
	w := newTestWorker(Deps{Applications: newFakeApps(), Extractor: ext})
	job := newJob("jd.txt", "Posting body.")
	w.Process(context.Background(), job)

	if ext.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", ext.calls)
	}
	if job.Snapshot().Status != StatusCompleted {
		t.Errorf("expected completed, got %s", job.Snapshot().Status)
	}
}

func TestWorker_NonRetryableNotRetried(t *testing.T) {
	ext := &fakeExtractor{errs: []error{errors.New("bad request")}}
	w := newTestWorker(Deps{Applications: newFakeApps(), Extractor: ext})
	job := newJob("jd.txt", "Posting body.")
	w.Process(context.Background(), job)

	if ext.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", ext.calls)
	}
	if job.Snapshot().Status != StatusPartial {
		t.Errorf("expected partial, got %s", job.Snapshot().Status)
	}
}

func TestWorker_UploadFailureIsPartial(t *testing.T) {
	apps := newFakeApps()
	w := newTestWorker(Deps{Applications: apps, Uploads: &fakeUploads{err: errors.New("bucket down")}})
	job := newJob("jd.txt", "Posting body.")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected partial, got %s", snap.Status)
	}
	if snap.SourceKey != "" || apps.created[0].SourceKey != "" {
		t.Error("expected no source key after failed upload")
	}
}

func TestWorker_ParseFailures(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{"unsupported", "resume.exe", "MZ"},
		{"empty", "blank.txt", "   \n\n  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorker(Deps{Applications: newFakeApps()})
			job := newJob(tt.filename, tt.content)
			w.Process(context.Background(), job)
			snap := job.Snapshot()
			if snap.Status != StatusFailed || snap.Phase != "parsing" {
				t.Errorf("expected failed in parsing, got %s/%s", snap.Status, snap.Phase)
			}
		})
	}
}

func TestWorker_SaveFailure(t *testing.T) {
	apps := newFakeApps()
	apps.saveErr = errors.New("backend unavailable")
	w := newTestWorker(Deps{Applications: apps})
	job := newJob("jd.txt", "Posting body.")
	w.Process(context.Background(), job)
	if snap := job.Snapshot(); snap.Status != StatusFailed || snap.Phase != "saving" {
		t.Errorf("expected failed in saving, got %s/%s", snap.Status, snap.Phase)
	}
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	apps := newFakeApps()
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, Deps{Applications: apps}, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := newJob("jd.txt", "Posting body.")
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected job to be registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !job.Snapshot().Status.Done() {
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %s", job.Snapshot().Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if job.Snapshot().Status != StatusCompleted {
		t.Errorf("expected completed, got %s", job.Snapshot().Status)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, Deps{Applications: newFakeApps()}, discardLogger())
	// Workers are not started, so the queue fills.
	first := newJob("a.txt", "a")
	if err := o.Submit(first); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := newJob("b.txt", "b")
	second.ID = "job-2"
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if second.Snapshot().Status != StatusFailed {
		t.Errorf("expected rejected job marked failed, got %s", second.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", o.QueueDepth())
	}
}
