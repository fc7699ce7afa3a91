package pipeline

import (
	"testing"
	"time"
)

func TestNewJob(t *testing.T) {
	job := NewJob("letter.docx", "rows.csv", "/tmp/x")
	if job.ID == "" || len(job.ID) != 36 {
		t.Errorf("expected uuid job id, got %q", job.ID)
	}
	if job.Status != StatusQueued || job.Package != PackageZip {
		t.Errorf("unexpected defaults: status=%q package=%q", job.Status, job.Package)
	}
	if job.Dir() != "/tmp/x" {
		t.Errorf("expected dir /tmp/x, got %q", job.Dir())
	}
	if other := NewJob("a", "b", ""); other.ID == job.ID {
		t.Error("expected unique job ids")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing data"},
		{StatusFilling, "filling records"},
		{StatusConverting, "converting to pdf"},
		{StatusPackaging, "packaging"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJobStatus_Done(t *testing.T) {
	for _, s := range []JobStatus{StatusCompleted, StatusFailed, StatusPartial} {
		if !s.Done() {
			t.Errorf("expected %q to be terminal", s)
		}
	}
	for _, s := range []JobStatus{StatusQueued, StatusParsing, StatusFilling, StatusConverting, StatusPackaging} {
		if s.Done() {
			t.Errorf("expected %q to be non-terminal", s)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("record 3 failed")
	job.AddError("record 7 failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "record 3 failed" {
		t.Errorf("expected first error %q, got %q", "record 3 failed", snap.Progress.Errors[0])
	}

	// The snapshot must not alias the live slice.
	snap.Progress.Errors[0] = "changed"
	if job.Snapshot().Progress.Errors[0] != "record 3 failed" {
		t.Error("snapshot aliases job errors")
	}
}

func TestJob_Counters(t *testing.T) {
	job := &Job{ID: "incr-test", UpdatedAt: time.Now()}
	job.SetTotalRecords(5)
	job.IncrFilled()
	job.IncrFilled()
	job.IncrFilled()
	job.IncrConverted()

	snap := job.Snapshot()
	if snap.Progress.TotalRecords != 5 {
		t.Errorf("expected 5 total records, got %d", snap.Progress.TotalRecords)
	}
	if snap.Progress.Filled != 3 {
		t.Errorf("expected 3 filled, got %d", snap.Progress.Filled)
	}
	if snap.Progress.Converted != 1 {
		t.Errorf("expected 1 converted, got %d", snap.Progress.Converted)
	}
}

func TestJob_Inputs(t *testing.T) {
	job := &Job{ID: "data-test"}
	job.SetInputs([]byte("tpl"), []byte("rows"))
	tpl, data := job.Inputs()
	if string(tpl) != "tpl" || string(data) != "rows" {
		t.Errorf("unexpected inputs %q %q", tpl, data)
	}
	job.releaseInputs()
	if tpl, data := job.Inputs(); tpl != nil || data != nil {
		t.Error("expected inputs released")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Downloadable {
		t.Error("expected job without result to be non-downloadable")
	}
	job.setResultPath("/tmp/documents.zip")
	if !job.Snapshot().Downloadable {
		t.Error("expected job with result to be downloadable")
	}
}

func TestJob_ResultsCopy(t *testing.T) {
	job := &Job{ID: "results"}
	in := []RecordResult{{Index: 0, Name: "Ann_1"}}
	job.setResults(in)
	in[0].Name = "changed"
	got := job.Results()
	if len(got) != 1 || got[0].Name != "Ann_1" {
		t.Errorf("unexpected results %+v", got)
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", Status: StatusCompleted, UpdatedAt: time.Now()}
	running := &Job{ID: "running", Status: StatusFilling, UpdatedAt: time.Now()}
	store.Put(expired)
	store.Put(running)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", Status: StatusCompleted, UpdatedAt: time.Now()}
	store.Put(fresh)

	evicted := store.Cleanup()

	if len(evicted) != 1 || evicted[0].ID != "old" {
		t.Errorf("expected only the old job evicted, got %d", len(evicted))
	}
	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("running") == nil {
		t.Error("expected unfinished job to survive cleanup")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	if evicted := store.Cleanup(); len(evicted) != 0 {
		t.Errorf("expected nothing evicted, got %d", len(evicted))
	}
}
