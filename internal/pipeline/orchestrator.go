package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/jobtrail/internal/applications"
	"github.com/dgallion1/jobtrail/internal/assistant"
	"github.com/dgallion1/jobtrail/internal/config"
	"github.com/dgallion1/jobtrail/internal/parser"
)

// Applications is the part of applications.Service imports write through.
type Applications interface {
	Create(ctx context.Context, in applications.CreateInput) (*applications.Application, error)
	Update(ctx context.Context, userID, id string, p applications.Patch) (*applications.Application, error)
	FindByContentHash(ctx context.Context, userID, hash string) (*applications.Application, error)
	RecordEvent(ctx context.Context, app *applications.Application, eventType, details string)
}

// Extractor turns posting text into structured fields.
type Extractor interface {
	ExtractPosting(ctx context.Context, text string) (*assistant.Posting, error)
}

// Uploads stores the original file bytes.
type Uploads interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Deps are the collaborators of the import workers. Extractor and Uploads
// may be nil; the matching phases are skipped.
type Deps struct {
	Applications Applications
	Extractor    Extractor
	Uploads      Uploads
}

// Orchestrator manages the document import pipeline.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	deps  Deps
	log   *slog.Logger
	cfg   config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, deps Deps, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		deps:  deps,
		log:   log,
		cfg:   cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	parseOpts := parser.Options{PDFFallbackPdftotext: o.cfg.PDFFallbackPdftotext}
	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.deps, parseOpts, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
