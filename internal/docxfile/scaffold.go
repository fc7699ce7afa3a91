package docxfile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// Scaffold builds a starter template with an optional bold title and one
// "Name: {Name}" line per field. Blank names and names holding braces are
// skipped since no placeholder can refer to them.
func Scaffold(title string, fields []string) ([]byte, error) {
	f := docx.New().WithDefaultTheme()
	if title != "" {
		f.AddParagraph().AddText(title).Bold().Size("32")
	}
	for _, name := range fields {
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsAny(name, "{}") {
			continue
		}
		p := f.AddParagraph()
		p.AddText(name + ": ").Bold()
		p.AddText("{" + name + "}")
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}
