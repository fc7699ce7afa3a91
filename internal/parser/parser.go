// Package parser turns uploaded data files into fill records.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docfill/internal/fill"
)

// Dataset is the content of one data file: its column names in order and
// one record per data row.
type Dataset struct {
	Source  string
	Columns []string
	Records []fill.Record
}

// Parser converts raw data file bytes into a Dataset.
type Parser interface {
	Parse(r io.Reader, filename string) (*Dataset, error)
}

// SupportedExtensions lists data file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xlsm": true,
	".html": true,
	".htm":  true,
	".txt":  true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return &CSVParser{}, nil
	case ".xlsx", ".xlsm":
		return &XLSXParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// fromRows builds a dataset from a header row and data rows. Columns with a
// blank header are dropped and repeated headers get a ".1", ".2" suffix.
// Blank or missing cells become null fields, and rows with no value at all
// are skipped.
func fromRows(source string, header []string, rows [][]string) *Dataset {
	ds := &Dataset{Source: source}
	type column struct {
		index int
		name  string
	}
	var cols []column
	seen := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			continue
		}
		if n := seen[h]; n > 0 {
			seen[h]++
			h = fmt.Sprintf("%s.%d", h, n)
		} else {
			seen[h] = 1
		}
		cols = append(cols, column{index: i, name: h})
		ds.Columns = append(ds.Columns, h)
	}

	for _, row := range rows {
		var rec fill.Record
		hasValue := false
		for _, c := range cols {
			if c.index >= len(row) || strings.TrimSpace(row[c.index]) == "" {
				rec.SetNull(c.name)
				continue
			}
			rec.Set(c.name, row[c.index])
			hasValue = true
		}
		if hasValue {
			ds.Records = append(ds.Records, rec)
		}
	}
	return ds
}
