package docxfile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/dgallion1/docfill/internal/doctree"
)

// scrubbedPart reports whether a package part carries run properties that
// can paint a background on text.
func scrubbedPart(name string) bool {
	if !strings.HasPrefix(name, "word/") || path.Ext(name) != ".xml" {
		return false
	}
	base := path.Base(name)
	return base == "document.xml" ||
		base == "styles.xml" ||
		strings.HasPrefix(base, "header") ||
		strings.HasPrefix(base, "footer") ||
		base == "footnotes.xml" ||
		base == "endnotes.xml"
}

// ScrubMarkings rewrites a package so that no run property block (w:rPr)
// in its text parts carries a highlight or character shading. It returns the
// new package and the number of elements removed. Parts that are not text
// parts are copied byte for byte.
func ScrubMarkings(pkg []byte) ([]byte, int, error) {
	zr, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	total := 0
	for _, f := range zr.File {
		data, err := readZipFile(f)
		if err != nil {
			return nil, 0, fmt.Errorf("read part %s: %w", f.Name, err)
		}
		if scrubbedPart(f.Name) {
			var n int
			data, n, err = scrubPart(data)
			if err != nil {
				return nil, 0, fmt.Errorf("scrub part %s: %w", f.Name, err)
			}
			total += n
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: f.Modified})
		if err != nil {
			return nil, 0, fmt.Errorf("create part %s: %w", f.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, 0, fmt.Errorf("write part %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("close package: %w", err)
	}
	return out.Bytes(), total, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// scrubPart removes highlight-family and shd children and attributes of
// every rPr element. The part is returned unchanged when nothing matched,
// so untouched parts keep their exact serialization.
func scrubPart(data []byte) ([]byte, int, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, 0, err
	}
	n := 0
	for _, rpr := range doc.FindElements("//rPr") {
		children, attrs := markings(rpr)
		for _, c := range children {
			rpr.RemoveChild(c)
		}
		for _, a := range attrs {
			rpr.RemoveAttr(a.FullKey())
		}
		n += len(children) + len(attrs)
	}
	if n == 0 {
		return data, 0, nil
	}
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, 0, err
	}
	return out, n, nil
}

// markings lists the background markings held by a property block, as
// child elements or as attributes.
func markings(rpr *etree.Element) ([]*etree.Element, []etree.Attr) {
	var children []*etree.Element
	for _, c := range rpr.ChildElements() {
		if doctree.IsMarkingTag(c.Tag) {
			children = append(children, c)
		}
	}
	var attrs []etree.Attr
	for _, a := range rpr.Attr {
		if doctree.IsMarkingTag(a.Key) {
			attrs = append(attrs, a)
		}
	}
	return children, attrs
}

// CountMarkings reports how many highlight or shading markings remain in
// the text parts of a package.
func CountMarkings(pkg []byte) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	total := 0
	for _, f := range zr.File {
		if !scrubbedPart(f.Name) {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return 0, err
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			return 0, fmt.Errorf("parse part %s: %w", f.Name, err)
		}
		for _, rpr := range doc.FindElements("//rPr") {
			children, attrs := markings(rpr)
			total += len(children) + len(attrs)
		}
	}
	return total, nil
}
