package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXParser handles Excel workbooks. It reads the active sheet (or the
// sheet named by Sheet) with the first row as the header. Cell values come
// back formatted the way the workbook displays them, so dates arrive
// already rendered.
type XLSXParser struct {
	Sheet string
}

func (p *XLSXParser) Parse(r io.Reader, filename string) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := p.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	source := strings.TrimSuffix(filename, filepath.Ext(filename))
	// Leading blank rows are common above a header.
	for len(rows) > 0 && blankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return &Dataset{Source: source}, nil
	}
	return fromRows(source, rows[0], rows[1:]), nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
