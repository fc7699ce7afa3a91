// Package render turns filled documents into PDFs and checks what came out.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrConverterMissing is returned when the office binary cannot be resolved.
var ErrConverterMissing = errors.New("pdf converter not available")

// ConvertError describes a failed conversion run.
type ConvertError struct {
	Input     string
	Output    string
	Err       error
	Retryable bool
}

func (e *ConvertError) Error() string {
	msg := fmt.Sprintf("convert %s: %v", filepath.Base(e.Input), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + truncate(out, 200)
	}
	return msg
}

func (e *ConvertError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a conversion failure worth another attempt.
func IsRetryable(err error) bool {
	var ce *ConvertError
	return errors.As(err, &ce) && ce.Retryable
}

// Converter runs LibreOffice headless to turn .docx files into PDFs.
type Converter struct {
	binary  string
	timeout time.Duration
	log     *slog.Logger
}

func NewConverter(binary string, timeout time.Duration, log *slog.Logger) *Converter {
	if binary == "" {
		binary = "soffice"
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Converter{binary: binary, timeout: timeout, log: log}
}

// Binary returns the configured binary name or path.
func (c *Converter) Binary() string { return c.binary }

// Available reports whether the converter binary resolves on this host.
func (c *Converter) Available() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// ToPDF converts docxPath into outDir and returns the path of the PDF. Each
// run gets its own profile directory so parallel conversions do not fight
// over the LibreOffice user lock.
func (c *Converter) ToPDF(ctx context.Context, docxPath, outDir string) (string, error) {
	bin, err := exec.LookPath(c.binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrConverterMissing, c.binary)
	}

	profile, err := os.MkdirTemp("", "docfill-lo-*")
	if err != nil {
		return "", fmt.Errorf("create profile dir: %w", err)
	}
	defer os.RemoveAll(profile)

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	profileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(profile)}).String()
	args := []string{
		"-env:UserInstallation=" + profileURL,
		"--headless",
		"--norestore",
		"--convert-to", "pdf",
		"--outdir", outDir,
		docxPath,
	}
	cmd := exec.CommandContext(runCtx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil {
		// The parent context going away is final; our own timeout is not.
		retryable := ctx.Err() == nil
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			runErr = fmt.Errorf("timed out after %s", c.timeout)
		}
		return "", &ConvertError{
			Input:     docxPath,
			Output:    stderr.String() + stdout.String(),
			Err:       runErr,
			Retryable: retryable,
		}
	}

	base := strings.TrimSuffix(filepath.Base(docxPath), filepath.Ext(docxPath))
	pdfPath := filepath.Join(outDir, base+".pdf")
	if err := Validate(pdfPath); err != nil {
		return "", &ConvertError{
			Input:     docxPath,
			Output:    stderr.String(),
			Err:       err,
			Retryable: true,
		}
	}

	c.log.Debug("converted to pdf",
		"input", filepath.Base(docxPath),
		"output", filepath.Base(pdfPath),
		"duration_ms", elapsed.Milliseconds())
	return pdfPath, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
