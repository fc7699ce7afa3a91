package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVParser handles CSV files. The first row is the header.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	source := strings.TrimSuffix(filename, ".csv")
	if len(records) == 0 {
		return &Dataset{Source: source}, nil
	}
	return fromRows(source, records[0], records[1:]), nil
}
