package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docfill/internal/fill"
)

// TextParser handles plain text files. Records are separated by blank
// lines; each line of a record is "Key: Value". Lines without a colon are
// ignored.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	ds := &Dataset{Source: strings.TrimSuffix(filename, ".txt")}
	seen := map[string]bool{}
	var current fill.Record

	flush := func() {
		if current.Len() > 0 {
			ds.Records = append(ds.Records, current)
			current = fill.Record{}
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if !seen[key] {
			seen[key] = true
			ds.Columns = append(ds.Columns, key)
		}
		if strings.TrimSpace(value) == "" {
			current.SetNull(key)
		} else {
			current.Set(key, strings.TrimSpace(value))
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}
