package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/docxfile"
	"github.com/dgallion1/docfill/internal/fill"
	"github.com/dgallion1/docfill/internal/parser"
	"github.com/dgallion1/docfill/internal/render"
)

// Output names inside a job directory.
const (
	ZipName    = "documents.zip"
	MergedName = "merged.pdf"
	inputDir   = "input"
	docxDir    = "docx"
	pdfDir     = "pdf"
)

// Worker processes a single batch job.
type Worker struct {
	cfg       config.Config
	converter *render.Converter
	stats     *Stats
	log       *slog.Logger
	retryBase time.Duration
}

func NewWorker(cfg config.Config, conv *render.Converter, stats *Stats, log *slog.Logger) *Worker {
	if stats == nil {
		stats = NewStats(time.Hour)
	}
	return &Worker{
		cfg:       cfg,
		converter: conv,
		stats:     stats,
		log:       log,
		retryBase: time.Second,
	}
}

// Process runs the full fill pipeline for a job. The job ends in a terminal
// status; the returned error is the reason it failed, if it did.
func (w *Worker) Process(ctx context.Context, job *Job) error {
	start := time.Now()
	log := w.log.With("job_id", job.ID, "template", job.TemplateName, "data", job.DataName)
	err := w.run(ctx, job, log)
	w.stats.Job.Observe(start, err)
	if err != nil {
		log.Error("job failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "failed")
		return err
	}
	return nil
}

func (w *Worker) run(ctx context.Context, job *Job, log *slog.Logger) error {
	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing data")
	dir := job.Dir()
	if dir == "" {
		return errors.New("job has no working directory")
	}
	tplData, data := job.Inputs()

	placeholders, err := fill.InspectBytes(tplData)
	if err != nil {
		return fmt.Errorf("template %s: %w", job.TemplateName, err)
	}

	p, err := parser.ForFile(job.DataName)
	if err != nil {
		return err
	}
	ds, err := p.Parse(bytes.NewReader(data), job.DataName)
	if err != nil {
		return fmt.Errorf("parse %s: %w", job.DataName, err)
	}
	if len(ds.Records) == 0 {
		return fmt.Errorf("%s has no data records", job.DataName)
	}
	if w.cfg.MaxRecords > 0 && len(ds.Records) > w.cfg.MaxRecords {
		return fmt.Errorf("%s has %d records, limit is %d", job.DataName, len(ds.Records), w.cfg.MaxRecords)
	}
	job.SetTotalRecords(len(ds.Records))
	log.Info("parsed data", "records", len(ds.Records), "columns", len(ds.Columns), "placeholders", len(placeholders))

	in := filepath.Join(dir, inputDir)
	if err := os.MkdirAll(in, 0o755); err != nil {
		return fmt.Errorf("create input dir: %w", err)
	}
	defer os.RemoveAll(in)
	templatePath := filepath.Join(in, "template.docx")
	if err := docxfile.WriteFileAtomic(templatePath, tplData); err != nil {
		return fmt.Errorf("stage template: %w", err)
	}
	job.releaseInputs()

	// Phase 2: Fill
	job.SetStatus(StatusFilling, "filling records")
	results, err := w.fillAll(ctx, job, templatePath, ds.Records, log)
	job.setResults(results)
	if err != nil {
		return err
	}

	// Phase 3: Convert
	if job.PDF {
		job.SetStatus(StatusConverting, "converting to pdf")
		if err := w.convertAll(ctx, job, results, log); err != nil {
			job.setResults(results)
			return err
		}
		job.setResults(results)
	}

	// Phase 4: Package
	job.SetStatus(StatusPackaging, "packaging")
	var outputs []string
	failed := 0
	for _, r := range results {
		switch {
		case r.Error != "":
			failed++
		case job.PDF && r.PDF != "":
			outputs = append(outputs, r.PDF)
		case !job.PDF && r.Docx != "":
			outputs = append(outputs, r.Docx)
		}
	}
	if len(outputs) == 0 {
		return errors.New("no documents were produced")
	}

	switch {
	case job.Package == PackageMerge && job.PDF:
		out := filepath.Join(dir, MergedName)
		if err := render.Merge(outputs, out); err != nil {
			return err
		}
		job.setResultPath(out)
	case job.Package == PackageZip || job.Package == PackageMerge:
		out := filepath.Join(dir, ZipName)
		if err := writeZip(out, outputs, results); err != nil {
			return fmt.Errorf("package results: %w", err)
		}
		job.setResultPath(out)
	}

	log.Info("job complete", "documents", len(outputs), "failed", failed, "result", filepath.Base(job.ResultPath()))
	if failed > 0 {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
	return nil
}

// fillAll fills every record with a bounded pool of engines. With
// AbortOnRecordError set the first failure stops the batch and is returned.
func (w *Worker) fillAll(ctx context.Context, job *Job, templatePath string, records []fill.Record, log *slog.Logger) ([]RecordResult, error) {
	outDir := filepath.Join(job.Dir(), docxDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	results := make([]RecordResult, len(records))
	for i, rec := range records {
		results[i] = RecordResult{Index: i, Name: OutputName(rec, w.cfg.OutputNameField, i), Error: "not started"}
	}

	fillCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var (
		wg       sync.WaitGroup
		abortErr error
		abortMu  sync.Mutex
	)
	sem := make(chan struct{}, max(w.cfg.FillWorkers, 1))

loop:
	for i, rec := range records {
		select {
		case sem <- struct{}{}:
		case <-fillCtx.Done():
			break loop
		}
		if fillCtx.Err() != nil {
			<-sem
			break
		}
		wg.Add(1)
		go func(i int, rec fill.Record) {
			defer wg.Done()
			defer func() { <-sem }()
			res := w.fillRecord(fillCtx, templatePath, outDir, rec, results[i].Name, job.Compact, log)
			res.Index = i
			results[i] = res
			if res.Error != "" {
				log.Warn("record failed", "record", i+1, "name", res.Name, "error", res.Error)
				job.AddError(fmt.Sprintf("record %d (%s): %s", i+1, res.Name, res.Error))
				if w.cfg.AbortOnRecordError {
					abortMu.Lock()
					if abortErr == nil {
						abortErr = fmt.Errorf("record %d: %s", i+1, res.Error)
					}
					abortMu.Unlock()
					cancel()
				}
				return
			}
			job.IncrFilled()
		}(i, rec)
	}
	wg.Wait()

	if abortErr != nil {
		return results, abortErr
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (w *Worker) fillRecord(ctx context.Context, templatePath, outDir string, rec fill.Record, name string, compact bool, log *slog.Logger) RecordResult {
	res := RecordResult{Name: name}
	out := filepath.Join(outDir, name+".docx")

	ctx, cancel := context.WithTimeout(ctx, w.cfg.RecordTimeout)
	defer cancel()

	type outcome struct {
		rep fill.Report
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		eng := fill.New(fill.WithLogger(log), fill.WithStrictKeys(w.cfg.StrictKeys))
		rep, err := eng.FillFile(templatePath, out, rec, compact)
		done <- outcome{rep: rep, err: err}
	}()

	select {
	case o := <-done:
		w.stats.Fill.Observe(start, o.err)
		if o.err != nil {
			res.Error = o.err.Error()
			return res
		}
		res.Docx = out
		res.Report = &o.rep
		if len(o.rep.Unresolved) > 0 {
			log.Debug("unresolved placeholders", "name", name, "unresolved", o.rep.Unresolved)
		}
	case <-ctx.Done():
		w.stats.Fill.Observe(start, ctx.Err())
		res.Error = fmt.Sprintf("fill: %v", ctx.Err())
	}
	return res
}

// convertAll renders every filled record to PDF with a bounded pool,
// retrying transient converter failures.
func (w *Worker) convertAll(ctx context.Context, job *Job, results []RecordResult, log *slog.Logger) error {
	if w.converter == nil || !w.converter.Available() {
		return render.ErrConverterMissing
	}
	outDir := filepath.Join(job.Dir(), pdfDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create pdf dir: %w", err)
	}

	convCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var (
		wg       sync.WaitGroup
		abortErr error
		abortMu  sync.Mutex
	)
	sem := make(chan struct{}, max(w.cfg.ConvertWorkers, 1))

loop:
	for i := range results {
		if results[i].Docx == "" || results[i].Error != "" {
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-convCtx.Done():
			break loop
		}
		if convCtx.Err() != nil {
			<-sem
			break
		}
		wg.Add(1)
		go func(r *RecordResult) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			var pdfPath string
			err := withRetry(convCtx, w.retryBase, log, func() error {
				var err error
				pdfPath, err = w.converter.ToPDF(convCtx, r.Docx, outDir)
				return err
			})
			w.stats.Convert.Observe(start, err)
			if err != nil {
				r.Error = fmt.Sprintf("convert: %v", err)
				log.Warn("conversion failed", "record", r.Index+1, "name", r.Name, "error", err)
				job.AddError(fmt.Sprintf("record %d (%s): %s", r.Index+1, r.Name, r.Error))
				if w.cfg.AbortOnRecordError {
					abortMu.Lock()
					if abortErr == nil {
						abortErr = fmt.Errorf("record %d: %s", r.Index+1, r.Error)
					}
					abortMu.Unlock()
					cancel()
				}
				return
			}
			r.PDF = pdfPath
			job.IncrConverted()

			if info, err := render.Inspect(convCtx, pdfPath, w.cfg.PDFFallbackPdftotext); err != nil {
				log.Debug("pdf inspect skipped", "name", r.Name, "error", err)
			} else if len(info.Leftover) > 0 {
				log.Warn("placeholders left in pdf", "name", r.Name, "leftover", info.Leftover)
			}
		}(&results[i])
	}
	wg.Wait()

	if abortErr != nil {
		return abortErr
	}
	return ctx.Err()
}
