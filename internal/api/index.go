package api

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed usage.md
var usageMarkdown []byte

const pageHead = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>docfill</title>
<style>body{font-family:sans-serif;max-width:52rem;margin:2rem auto;padding:0 1rem}
code,pre{background:#f4f4f4}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.3rem .6rem}</style>
</head><body>
`

// renderIndex turns the embedded usage notes into the HTML index page.
func renderIndex() ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	buf.WriteString(pageHead)
	if err := md.Convert(usageMarkdown, &buf); err != nil {
		return nil, fmt.Errorf("render usage page: %w", err)
	}
	buf.WriteString("</body></html>\n")
	return buf.Bytes(), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.index)
}
