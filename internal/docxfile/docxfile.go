// Package docxfile loads .docx packages into the doctree model and writes
// them back.
package docxfile

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/dgallion1/docfill/internal/doctree"
)

// ErrMalformed marks input that is not a readable word-processing package.
var ErrMalformed = errors.New("malformed document")

const defaultMainPart = "word/document.xml"

type part struct {
	name     string
	method   uint16
	modified time.Time
	data     []byte
}

// Template is a loaded package: the editable tree plus the markup it was
// read from. Package parts other than the main document (styles, headers,
// media) are kept as read and written back unchanged.
type Template struct {
	Doc *doctree.Document

	parts []part
	main  int
	xml   *etree.Document
}

// Open reads and loads the package at path. A missing file yields an error
// satisfying errors.Is(err, os.ErrNotExist).
func Open(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return Load(data)
}

// Load parses a package held in memory.
func Load(data []byte) (*Template, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	t := &Template{main: -1}
	for _, f := range zr.File {
		b, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: read part %s: %v", ErrMalformed, f.Name, err)
		}
		t.parts = append(t.parts, part{name: f.Name, method: f.Method, modified: f.Modified, data: b})
	}

	name := t.mainPartName()
	for i, p := range t.parts {
		if p.name == name {
			t.main = i
		}
	}
	if t.main < 0 {
		return nil, fmt.Errorf("%w: no main document part", ErrMalformed)
	}

	t.xml = etree.NewDocument()
	if err := t.xml.ReadFromBytes(t.parts[t.main].data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	root := t.xml.Root()
	if root == nil || root.Tag != "document" {
		return nil, fmt.Errorf("%w: %s has no document element", ErrMalformed, name)
	}
	body := child(root, "body")
	if body == nil {
		return nil, fmt.Errorf("%w: %s has no body", ErrMalformed, name)
	}

	t.Doc = doctree.New()
	t.loadBlocks(t.Doc.Root(), body)
	return t, nil
}

// mainPartName resolves the officeDocument relationship of the package,
// falling back to the conventional location.
func (t *Template) mainPartName() string {
	for _, p := range t.parts {
		if p.name != "_rels/.rels" {
			continue
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(p.data); err != nil || doc.Root() == nil {
			break
		}
		for _, rel := range doc.Root().ChildElements() {
			typ, _ := attr(rel, "Type")
			target, _ := attr(rel, "Target")
			if strings.HasSuffix(typ, "/officeDocument") && target != "" {
				return path.Clean(strings.TrimPrefix(target, "/"))
			}
		}
	}
	return defaultMainPart
}

// WriteTo serializes the current tree as a complete package. Highlight and
// character shading are removed from every text part on the way out.
func (t *Template) WriteTo(w io.Writer) (int64, error) {
	t.sync()
	main, err := t.xml.WriteToBytes()
	if err != nil {
		return 0, fmt.Errorf("serialize %s: %w", t.parts[t.main].name, err)
	}

	var raw bytes.Buffer
	zw := zip.NewWriter(&raw)
	for i, p := range t.parts {
		data := p.data
		if i == t.main {
			data = main
		}
		pw, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: p.method, Modified: p.modified})
		if err != nil {
			return 0, fmt.Errorf("create part %s: %w", p.name, err)
		}
		if _, err := pw.Write(data); err != nil {
			return 0, fmt.Errorf("write part %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("serialize package: %w", err)
	}

	clean, _, err := ScrubMarkings(raw.Bytes())
	if err != nil {
		return 0, err
	}
	n, err := w.Write(clean)
	return int64(n), err
}

// Bytes returns the serialized package.
func (t *Template) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := t.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the package to path atomically: the bytes land in a temporary
// sibling which is renamed over path only after a complete write.
func (t *Template) Save(path string) error {
	data, err := t.Bytes()
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".docfill-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
