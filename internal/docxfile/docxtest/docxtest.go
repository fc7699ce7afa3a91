// Package docxtest builds small .docx fixtures for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fumiama/go-docx"
)

// Build runs fn against a fresh package and returns its bytes.
func Build(tb testing.TB, fn func(f *docx.Docx)) []byte {
	tb.Helper()
	f := docx.New()
	fn(f)
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		tb.Fatalf("build fixture: %v", err)
	}
	return buf.Bytes()
}

// Write builds a fixture and stores it as dir/name, returning the path.
func Write(tb testing.TB, dir, name string, fn func(f *docx.Docx)) string {
	tb.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, Build(tb, fn), 0o644); err != nil {
		tb.Fatalf("write fixture: %v", err)
	}
	return p
}

// Runs adds one paragraph made of the given text pieces, one run each.
func Runs(f *docx.Docx, pieces ...string) *docx.Paragraph {
	p := f.AddParagraph()
	for _, s := range pieces {
		p.AddText(s)
	}
	return p
}

// Cell adds a one-row, one-column table whose cell holds a single paragraph
// of the given pieces.
func Cell(f *docx.Docx, pieces ...string) *docx.Table {
	tbl := f.AddTable(1, 1, 0, nil)
	p := tbl.TableRows[0].TableCells[0].AddParagraph()
	for _, s := range pieces {
		p.AddText(s)
	}
	return tbl
}

const (
	contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`
	rootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`
	documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:w14="http://schemas.microsoft.com/office/word/2010/wordml"><w:body>`
	documentTail = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`
)

// Markup packages body, the inner markup of w:body, the way Word lays a
// document out. It lets tests use content go-docx cannot author.
func Markup(tb testing.TB, body string) []byte {
	tb.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range []struct{ name, data string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", rootRels},
		{"word/document.xml", documentHead + body + documentTail},
	} {
		w, err := zw.Create(p.name)
		if err != nil {
			tb.Fatalf("build fixture: %v", err)
		}
		if _, err := w.Write([]byte(p.data)); err != nil {
			tb.Fatalf("build fixture: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("build fixture: %v", err)
	}
	return buf.Bytes()
}

// MainPart returns the main document markup of a package.
func MainPart(tb testing.TB, pkg []byte) string {
	tb.Helper()
	zr, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	if err != nil {
		tb.Fatalf("open package: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			tb.Fatalf("open main part: %v", err)
		}
		defer rc.Close()
		var out bytes.Buffer
		if _, err := out.ReadFrom(rc); err != nil {
			tb.Fatalf("read main part: %v", err)
		}
		return out.String()
	}
	tb.Fatal("package has no word/document.xml")
	return ""
}
