package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docfill/internal/fill"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Validate checks that path is a non-empty, structurally valid PDF.
func Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat pdf: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("pdf is empty")
	}
	if err := api.ValidateFile(path, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("invalid pdf: %w", err)
	}
	return nil
}

// Merge concatenates inputs, in order, into a single PDF at out.
func Merge(inputs []string, out string) error {
	if len(inputs) == 0 {
		return errors.New("merge: no input files")
	}
	if err := api.MergeCreateFile(inputs, out, false, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("merge pdfs: %w", err)
	}
	return nil
}

// PDFInfo summarizes a rendered PDF.
type PDFInfo struct {
	Pages int `json:"pages"`
	// Leftover lists placeholder names still visible in the page text.
	Leftover []string `json:"leftover,omitempty"`
}

// Inspect reads page count and text from a PDF and reports any placeholders
// that survived into the rendered output. When the Go reader fails and
// fallbackPdftotext is set, pdftotext is tried for the text.
func Inspect(ctx context.Context, path string, fallbackPdftotext bool) (*PDFInfo, error) {
	pages, text, err := extractPDFText(path)
	if err != nil && fallbackPdftotext {
		text, err = extractPdftotext(ctx, path)
		pages = strings.Count(text, "\f")
		if strings.TrimSpace(text) != "" && !strings.HasSuffix(text, "\f") {
			pages++
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return &PDFInfo{Pages: pages, Leftover: leftovers(text)}, nil
}

func leftovers(text string) []string {
	var names []string
	seen := map[string]bool{}
	for _, page := range strings.Split(text, "\f") {
		for _, occ := range fill.FindPlaceholders(page) {
			if !seen[occ.Name] {
				seen[occ.Name] = true
				names = append(names, occ.Name)
			}
		}
	}
	return names
}

func extractPDFText(path string) (int, string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}
	return numPages, buf.String(), nil
}

func extractPdftotext(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
