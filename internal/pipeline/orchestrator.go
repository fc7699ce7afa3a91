package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/render"
)

// ErrQueueFull is returned by Submit when no queue slot is free.
var ErrQueueFull = errors.New("job queue is full")

// Orchestrator manages the batch fill pipeline.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	converter *render.Converter
	stats     *Stats
	log       *slog.Logger
	cfg       config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, conv *render.Converter, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:      NewJobStore(cfg.JobTTL),
		queue:     make(chan *Job, cfg.MaxQueueSize),
		converter: conv,
		stats:     NewStats(time.Hour),
		log:       log,
		cfg:       cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.cfg, o.converter, o.stats, o.log)
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
				o.cleanup()
			}
		}
	}()
}

func (o *Orchestrator) cleanup() {
	for _, job := range o.jobs.Cleanup() {
		if dir := job.Dir(); dir != "" {
			if err := os.RemoveAll(dir); err != nil {
				o.log.Warn("remove job dir failed", "job_id", job.ID, "error", err)
			}
		}
	}
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing. A job without a directory gets
// one under the configured work dir.
func (o *Orchestrator) Submit(job *Job) error {
	if job.Dir() == "" {
		job.setDir(filepath.Join(o.cfg.WorkDir, job.ID))
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
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

// JobCount returns the number of tracked jobs.
func (o *Orchestrator) JobCount() int {
	return o.jobs.Len()
}

// Stats returns the pipeline latency trackers.
func (o *Orchestrator) Stats() *Stats {
	return o.stats
}

// Converter returns the PDF converter, for health checks.
func (o *Orchestrator) Converter() *render.Converter {
	return o.converter
}

// Remove forgets a finished job and deletes its files. It reports false when
// the job is unknown or still running.
func (o *Orchestrator) Remove(id string) (bool, error) {
	job := o.jobs.Get(id)
	if job == nil || !job.Snapshot().Status.Done() {
		return false, nil
	}
	o.jobs.Delete(id)
	if dir := job.Dir(); dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			return true, fmt.Errorf("remove job dir: %w", err)
		}
	}
	return true, nil
}
