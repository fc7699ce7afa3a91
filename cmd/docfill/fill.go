package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/docxfile"
	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/dgallion1/docfill/internal/render"
	"github.com/spf13/cobra"
)

type fillOptions struct {
	template  string
	data      string
	out       string
	compact   bool
	noCompact bool
	pdf       bool
	merge     bool
	zip       bool
	workers   int
	strict    bool
	nameField string
	asJSON    bool
}

func newFillCmd(logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var opts fillOptions
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill a template once per data record",
		Long: `Fill a template once per data record and write the documents to --out.

Compact mode removes paragraphs holding only an empty address line 2 or 3.
It is picked from the template file name unless --compact or --no-compact
is given.`,
		Example: "  docfill fill --template Offer.docx --data rows.xlsx --out ./letters --pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFill(cmd, opts, logger(cmd))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.template, "template", "t", "", "Template .docx file")
	f.StringVarP(&opts.data, "data", "d", "", "Data file (.csv, .xlsx, .xlsm, .html, .txt)")
	f.StringVarP(&opts.out, "out", "o", "", "Output directory")
	f.BoolVar(&opts.compact, "compact", false, "Force compact mode")
	f.BoolVar(&opts.noCompact, "no-compact", false, "Disable compact mode")
	f.BoolVar(&opts.pdf, "pdf", false, "Convert each document to PDF")
	f.BoolVar(&opts.merge, "merge", false, "Also merge all PDFs into one file (implies --pdf)")
	f.BoolVar(&opts.zip, "zip", false, "Also write a ZIP archive of the documents")
	f.IntVar(&opts.workers, "workers", 0, "Concurrent fills (default from config)")
	f.BoolVar(&opts.strict, "strict", false, "Reject data whose column names collide after normalization")
	f.StringVar(&opts.nameField, "name-field", "", "Record field used to name output files")
	f.BoolVar(&opts.asJSON, "json", false, "Print per-record results as JSON")
	cmd.MarkFlagRequired("template")
	cmd.MarkFlagRequired("data")
	cmd.MarkFlagRequired("out")
	cmd.MarkFlagsMutuallyExclusive("compact", "no-compact")
	return cmd
}

func runFill(cmd *cobra.Command, opts fillOptions, log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.workers > 0 {
		cfg.FillWorkers = opts.workers
		cfg.ConvertWorkers = opts.workers
	}
	if opts.strict {
		cfg.StrictKeys = true
	}
	if opts.nameField != "" {
		cfg.OutputNameField = opts.nameField
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	tplData, err := os.ReadFile(opts.template)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	data, err := os.ReadFile(opts.data)
	if err != nil {
		return fmt.Errorf("read data: %w", err)
	}

	workDir, err := os.MkdirTemp("", "docfill-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	job := pipeline.NewJob(filepath.Base(opts.template), filepath.Base(opts.data), workDir)
	switch {
	case opts.compact:
		job.Compact = true
	case opts.noCompact:
		job.Compact = false
	default:
		job.Compact = cfg.IsCompactTemplate(opts.template)
	}
	job.PDF = opts.pdf || opts.merge
	switch {
	case opts.merge:
		job.Package = pipeline.PackageMerge
	case opts.zip:
		job.Package = pipeline.PackageZip
	default:
		job.Package = pipeline.PackageNone
	}
	job.SetInputs(tplData, data)

	var conv *render.Converter
	if job.PDF {
		conv = render.NewConverter(cfg.SofficePath, cfg.ConvertTimeout, log)
	}
	procErr := pipeline.NewWorker(cfg, conv, nil, log).Process(cmd.Context(), job)

	results := job.Results()
	written, err := pipeline.CopyResults(results, job.PDF, opts.out)
	if err != nil {
		return fmt.Errorf("copy results: %w", err)
	}
	if src := job.ResultPath(); src != "" {
		target, err := copyInto(src, opts.out)
		if err != nil {
			return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
		}
		written = append(written, target)
	}

	if err := printResults(cmd, opts.asJSON, results); err != nil {
		return err
	}
	if procErr != nil {
		return procErr
	}

	snap := job.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files written to %s\n", snap.Status, len(written), opts.out)
	if snap.Status == pipeline.StatusPartial {
		return fmt.Errorf("%d of %d records failed", snap.Progress.Errors, snap.Progress.TotalRecords)
	}
	return nil
}

func copyInto(src, dir string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	target := filepath.Join(dir, filepath.Base(src))
	return target, docxfile.WriteFileAtomic(target, data)
}

type recordLine struct {
	Index        int      `json:"index"`
	Name         string   `json:"name"`
	Output       string   `json:"output,omitempty"`
	Error        string   `json:"error,omitempty"`
	Replacements int      `json:"replaced"`
	Unresolved   []string `json:"unresolved,omitempty"`
}

func printResults(cmd *cobra.Command, asJSON bool, results []pipeline.RecordResult) error {
	lines := make([]recordLine, 0, len(results))
	for _, r := range results {
		l := recordLine{Index: r.Index + 1, Name: r.Name, Error: r.Error}
		switch {
		case r.PDF != "":
			l.Output = filepath.Base(r.PDF)
		case r.Docx != "":
			l.Output = filepath.Base(r.Docx)
		}
		if r.Report != nil {
			l.Replacements = r.Report.Replaced
			l.Unresolved = r.Report.Unresolved
		}
		lines = append(lines, l)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(lines)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tOUTPUT\tRESULT")
	for _, l := range lines {
		result := fmt.Sprintf("ok (%d replaced)", l.Replacements)
		if l.Error != "" {
			result = "error: " + l.Error
		} else if len(l.Unresolved) > 0 {
			result += fmt.Sprintf(", unresolved %v", l.Unresolved)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", l.Index, l.Name, l.Output, result)
	}
	return tw.Flush()
}
