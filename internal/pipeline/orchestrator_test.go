package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/docfill/internal/config"
)

func waitDone(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if snap := job.Snapshot(); snap.Status.Done() {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", job.ID)
	return JobSnapshot{}
}

func TestOrchestratorRunsJobs(t *testing.T) {
	cfg := config.Defaults()
	cfg.WorkDir = t.TempDir()
	o := NewOrchestrator(cfg, nil, slog.New(slog.DiscardHandler))
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("letter.docx", "rows.csv", "")
	job.SetInputs(letterTemplate(t), []byte(rowsCSV))
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Dir() != filepath.Join(cfg.WorkDir, job.ID) {
		t.Errorf("job dir = %q", job.Dir())
	}
	if o.GetJob(job.ID) != job {
		t.Error("job not registered")
	}

	snap := waitDone(t, job)
	if snap.Status != StatusCompleted || !snap.Downloadable {
		t.Fatalf("snapshot = %+v", snap)
	}
	if _, err := os.Stat(job.ResultPath()); err != nil {
		t.Errorf("result missing: %v", err)
	}
	if o.Stats().Snapshot().Fill.Count != 2 {
		t.Errorf("fill samples = %d, want 2", o.Stats().Snapshot().Fill.Count)
	}
}

func TestOrchestratorQueueFull(t *testing.T) {
	cfg := config.Defaults()
	cfg.WorkDir = t.TempDir()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, nil, slog.New(slog.DiscardHandler))
	// Not started, so nothing drains the queue.

	first := NewJob("a.docx", "a.csv", "")
	if err := o.Submit(first); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	second := NewJob("b.docx", "b.csv", "")
	err := o.Submit(second)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if second.Snapshot().Status != StatusFailed {
		t.Errorf("rejected job status = %q", second.Snapshot().Status)
	}
	if o.QueueDepth() != 1 || o.JobCount() != 2 {
		t.Errorf("depth = %d, jobs = %d", o.QueueDepth(), o.JobCount())
	}
}

func TestOrchestratorCleanupRemovesDirs(t *testing.T) {
	cfg := config.Defaults()
	cfg.WorkDir = t.TempDir()
	cfg.JobTTL = time.Millisecond
	o := NewOrchestrator(cfg, nil, slog.New(slog.DiscardHandler))

	job := NewJob("a.docx", "a.csv", filepath.Join(cfg.WorkDir, "old"))
	os.MkdirAll(job.Dir(), 0o755)
	job.SetStatus(StatusCompleted, "done")
	o.jobs.Put(job)
	time.Sleep(10 * time.Millisecond)

	o.cleanup()
	if o.GetJob(job.ID) != nil {
		t.Error("job not evicted")
	}
	if _, err := os.Stat(job.Dir()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("job dir not removed: %v", err)
	}
}
