package pipeline

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/docxfile"
	"github.com/dgallion1/docfill/internal/docxfile/docxtest"
	"github.com/dgallion1/docfill/internal/fill"
	"github.com/dgallion1/docfill/internal/render"
	"github.com/fumiama/go-docx"
)

const rowsCSV = "Name,Address 2,Email\nAnn Lee,,ann@example.com\nBob,12 Road,bob@x.io\n"

func letterTemplate(t *testing.T) []byte {
	t.Helper()
	return docxtest.Build(t, func(f *docx.Docx) {
		docxtest.Runs(f, "Dear {Na", "me},")
		docxtest.Runs(f, "{Address 2}")
		docxtest.Runs(f, "Mail: {Email}")
	})
}

func testWorker(cfg config.Config) *Worker {
	w := NewWorker(cfg, nil, nil, slog.New(slog.DiscardHandler))
	w.retryBase = time.Millisecond
	return w
}

func newTestJob(t *testing.T, tpl []byte, dataName, data string) *Job {
	t.Helper()
	job := NewJob("letter.docx", dataName, t.TempDir())
	job.SetInputs(tpl, []byte(data))
	return job
}

func docText(t *testing.T, path string) string {
	t.Helper()
	tpl, err := docxfile.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	var lines []string
	for _, p := range tpl.Doc.Paragraphs() {
		lines = append(lines, tpl.Doc.Text(p))
	}
	return strings.Join(lines, "\n")
}

func TestWorkerProcessZip(t *testing.T) {
	job := newTestJob(t, letterTemplate(t), "rows.csv", rowsCSV)
	if err := testWorker(config.Defaults()).Process(context.Background(), job); err != nil {
		t.Fatalf("Process: %v", err)
	}

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %q, errors = %v", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.TotalRecords != 2 || snap.Progress.Filled != 2 {
		t.Errorf("progress = %+v", snap.Progress)
	}

	results := job.Results()
	if results[0].Name != "Ann Lee_1" || results[1].Name != "Bob_2" {
		t.Errorf("names = %q, %q", results[0].Name, results[1].Name)
	}
	if got := docText(t, results[0].Docx); !strings.Contains(got, "Dear Ann Lee,") {
		t.Errorf("first document text = %q", got)
	}
	if _, err := os.Stat(filepath.Join(job.Dir(), inputDir)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("input dir left behind: %v", err)
	}
	if tpl, data := job.Inputs(); tpl != nil || data != nil {
		t.Error("upload bytes not released")
	}

	zr, err := zip.OpenReader(job.ResultPath())
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	want := []string{"Ann Lee_1.docx", "Bob_2.docx", ManifestName}
	if strings.Join(names, "|") != strings.Join(want, "|") {
		t.Errorf("zip entries = %v, want %v", names, want)
	}

	mf, err := zr.Open(ManifestName)
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	raw, _ := io.ReadAll(mf)
	var manifest []RecordResult
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(manifest) != 2 || manifest[1].Docx != "Bob_2.docx" || manifest[1].Report == nil {
		t.Errorf("manifest = %+v", manifest)
	}
}

func TestWorkerProcessCompact(t *testing.T) {
	job := newTestJob(t, letterTemplate(t), "rows.csv", rowsCSV)
	job.Compact = true
	job.Package = PackageNone
	if err := testWorker(config.Defaults()).Process(context.Background(), job); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if job.ResultPath() != "" {
		t.Errorf("expected no packaged result, got %q", job.ResultPath())
	}
	results := job.Results()
	if results[0].Report.Pruned != 1 || results[1].Report.Pruned != 0 {
		t.Errorf("pruned = %d, %d", results[0].Report.Pruned, results[1].Report.Pruned)
	}
	if got := docText(t, results[0].Docx); strings.Count(got, "\n") != 1 {
		t.Errorf("compact document should have two paragraphs, got %q", got)
	}
	if got := docText(t, results[1].Docx); !strings.Contains(got, "12 Road") {
		t.Errorf("second document text = %q", got)
	}
}

func TestWorkerProcessFailures(t *testing.T) {
	tests := []struct {
		name     string
		tpl      []byte
		dataName string
		data     string
	}{
		{"no records", nil, "rows.csv", "Name,City\n"},
		{"unsupported data", nil, "rows.json", "[]"},
		{"malformed template", []byte("not a docx"), "rows.csv", rowsCSV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := tt.tpl
			if tpl == nil {
				tpl = letterTemplate(t)
			}
			job := newTestJob(t, tpl, tt.dataName, tt.data)
			if err := testWorker(config.Defaults()).Process(context.Background(), job); err == nil {
				t.Fatal("expected error")
			}
			snap := job.Snapshot()
			if snap.Status != StatusFailed || len(snap.Progress.Errors) == 0 {
				t.Errorf("snapshot = %+v", snap)
			}
		})
	}
}

func TestWorkerMaxRecords(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxRecords = 1
	job := newTestJob(t, letterTemplate(t), "rows.csv", rowsCSV)
	if err := testWorker(cfg).Process(context.Background(), job); err == nil || !strings.Contains(err.Error(), "limit") {
		t.Fatalf("err = %v", err)
	}
}

func TestWorkerPDFWithoutConverter(t *testing.T) {
	w := NewWorker(config.Defaults(), render.NewConverter("docfill-missing-office", time.Second, nil), nil, slog.New(slog.DiscardHandler))
	job := newTestJob(t, letterTemplate(t), "rows.csv", rowsCSV)
	job.PDF = true
	err := w.Process(context.Background(), job)
	if !errors.Is(err, render.ErrConverterMissing) {
		t.Fatalf("err = %v", err)
	}
	if job.Snapshot().Progress.Filled != 2 {
		t.Error("records should be filled before conversion")
	}
}

func collidingRecord() fill.Record {
	var r fill.Record
	r.Set("Name", "Ann")
	r.Set("NAME", "Other")
	return r
}

func fineRecord(name string) fill.Record {
	var r fill.Record
	r.Set("Name", name)
	return r
}

func stageTemplate(t *testing.T, job *Job) string {
	t.Helper()
	path := filepath.Join(job.Dir(), "template.docx")
	if err := os.WriteFile(path, letterTemplate(t), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFillAllPartial(t *testing.T) {
	cfg := config.Defaults()
	cfg.StrictKeys = true
	w := testWorker(cfg)
	job := NewJob("letter.docx", "rows.csv", t.TempDir())
	records := []fill.Record{fineRecord("Ann"), collidingRecord(), fineRecord("Cy")}

	results, err := w.fillAll(context.Background(), job, stageTemplate(t, job), records, w.log)
	if err != nil {
		t.Fatalf("fillAll: %v", err)
	}
	if results[0].Error != "" || results[2].Error != "" {
		t.Errorf("unexpected errors: %q %q", results[0].Error, results[2].Error)
	}
	if results[1].Error == "" || !strings.Contains(results[1].Error, "ambiguous") {
		t.Errorf("colliding record error = %q", results[1].Error)
	}
	snap := job.Snapshot()
	if snap.Progress.Filled != 2 || len(snap.Progress.Errors) != 1 {
		t.Errorf("progress = %+v", snap.Progress)
	}
}

func TestFillAllAbortOnRecordError(t *testing.T) {
	cfg := config.Defaults()
	cfg.StrictKeys = true
	cfg.AbortOnRecordError = true
	cfg.FillWorkers = 1
	w := testWorker(cfg)
	job := NewJob("letter.docx", "rows.csv", t.TempDir())
	records := []fill.Record{collidingRecord()}
	for i := range 20 {
		records = append(records, fineRecord(strings.Repeat("x", i+1)))
	}

	results, err := w.fillAll(context.Background(), job, stageTemplate(t, job), records, w.log)
	if err == nil {
		t.Fatal("expected abort error")
	}
	if job.Snapshot().Progress.Filled == len(records)-1 {
		t.Error("batch was not stopped after the first failure")
	}
	if results[len(results)-1].Error == "" {
		t.Error("records after the abort should not be filled")
	}
}

func TestWithRetry(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	calls := 0
	err := withRetry(context.Background(), time.Millisecond, log, func() error {
		calls++
		if calls < 3 {
			return &render.ConvertError{Err: errors.New("exit 1"), Retryable: true}
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}

	calls = 0
	err = withRetry(context.Background(), time.Millisecond, log, func() error {
		calls++
		return errors.New("permanent")
	})
	if err == nil || calls != 1 {
		t.Errorf("non-retryable: err = %v, calls = %d", err, calls)
	}

	calls = 0
	err = withRetry(context.Background(), time.Millisecond, log, func() error {
		calls++
		return &render.ConvertError{Err: errors.New("exit 1"), Retryable: true}
	})
	if err == nil || calls != MaxRetries {
		t.Errorf("exhausted: err = %v, calls = %d", err, calls)
	}
}

func TestBackoffBounds(t *testing.T) {
	for attempt := range 8 {
		d := Backoff(attempt)
		if d < time.Second || d > 45*time.Second {
			t.Errorf("Backoff(%d) = %s", attempt, d)
		}
	}
}

func TestWorkerProcessPDF(t *testing.T) {
	conv := render.NewConverter("soffice", 2*time.Minute, nil)
	if !conv.Available() {
		t.Skip("soffice not installed")
	}
	w := NewWorker(config.Defaults(), conv, nil, slog.New(slog.DiscardHandler))
	job := newTestJob(t, letterTemplate(t), "rows.csv", rowsCSV)
	job.PDF = true
	job.Package = PackageMerge
	if err := w.Process(context.Background(), job); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if filepath.Base(job.ResultPath()) != MergedName {
		t.Fatalf("result = %q", job.ResultPath())
	}
	info, err := render.Inspect(context.Background(), job.ResultPath(), true)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Pages < 2 {
		t.Errorf("pages = %d", info.Pages)
	}
}
