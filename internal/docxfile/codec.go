package docxfile

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/dgallion1/docfill/internal/doctree"
)

// Containers whose children belong to the enclosing block or paragraph:
// content controls, tracked insertions and moves, custom XML, smart tags,
// hyperlinks and simple fields. Deleted content (w:del, w:moveFrom) is not
// among them and stays opaque.
var (
	blockWrappers  = map[string]bool{"sdt": true, "sdtContent": true, "customXml": true, "ins": true, "moveTo": true}
	inlineWrappers = map[string]bool{
		"sdt": true, "sdtContent": true, "customXml": true, "ins": true, "moveTo": true,
		"smartTag": true, "hyperlink": true, "fldSimple": true, "dir": true, "bdo": true,
	}
)

// Every node loaded from markup carries its element as payload. Edits to
// the tree are applied back onto those elements on write, so everything
// the tree does not model is written back as it was read.

func (t *Template) loadBlocks(parent doctree.NodeID, container *etree.Element) {
	for _, el := range container.ChildElements() {
		switch {
		case el.Tag == "p":
			id := t.Doc.AddParagraph(parent)
			t.Doc.SetPayload(id, el)
			t.loadInline(id, el)
		case el.Tag == "tbl":
			id := t.Doc.AddTable(parent)
			t.Doc.SetPayload(id, el)
			t.loadRows(id, el)
		case blockWrappers[el.Tag]:
			t.loadBlocks(parent, el)
		default:
			t.Doc.AddOpaque(parent, el)
		}
	}
}

func (t *Template) loadRows(table doctree.NodeID, container *etree.Element) {
	for _, el := range container.ChildElements() {
		switch {
		case el.Tag == "tr":
			row := t.Doc.AddRow(table)
			t.Doc.SetPayload(row, el)
			t.loadCells(row, el)
		case blockWrappers[el.Tag]:
			t.loadRows(table, el)
		}
	}
}

func (t *Template) loadCells(row doctree.NodeID, container *etree.Element) {
	for _, el := range container.ChildElements() {
		switch {
		case el.Tag == "tc":
			cell := t.Doc.AddCell(row)
			t.Doc.SetPayload(cell, el)
			t.loadBlocks(cell, el)
		case blockWrappers[el.Tag]:
			t.loadCells(row, el)
		}
	}
}

func (t *Template) loadInline(para doctree.NodeID, container *etree.Element) {
	for _, el := range container.ChildElements() {
		switch {
		case el.Tag == "pPr":
		case el.Tag == "r" && isTextRun(el):
			id := t.Doc.AddRun(para, readRun(el))
			t.Doc.SetPayload(id, el)
		case inlineWrappers[el.Tag]:
			t.loadInline(para, el)
		default:
			t.Doc.AddOpaque(para, el)
		}
	}
}

// isTextRun reports whether a run holds only text, tabs and line breaks.
// Anything else (drawings, field codes, page breaks) is carried opaquely.
func isTextRun(r *etree.Element) bool {
	for _, c := range r.ChildElements() {
		switch c.Tag {
		case "rPr", "t", "tab", "cr", "lastRenderedPageBreak":
		case "br":
			if v, _ := attr(c, "type"); v != "" && v != "textWrapping" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func runText(r *etree.Element) string {
	var sb strings.Builder
	for _, c := range r.ChildElements() {
		switch c.Tag {
		case "t":
			sb.WriteString(c.Text())
		case "tab":
			sb.WriteByte('\t')
		case "br", "cr":
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func readRun(el *etree.Element) doctree.Run {
	r := readProps(child(el, "rPr"))
	r.Text = runText(el)
	return r
}

// sync applies the tree onto the markup: detached nodes lose their
// elements, runs are rewritten where their text or formatting changed,
// runs created after loading get new elements, and cells left without a
// paragraph get an empty one.
func (t *Template) sync() {
	d := t.Doc
	for i := 1; i < d.Len(); i++ {
		id := doctree.NodeID(i)
		el, ok := d.Payload(id).(*etree.Element)
		if !ok || d.Kind(id) == doctree.KindOpaque {
			continue
		}
		if !d.Attached(id) {
			if p := el.Parent(); p != nil {
				p.RemoveChild(el)
			}
			continue
		}
		if d.Kind(id) == doctree.KindRun {
			writeRun(el, *d.Run(id))
		}
	}

	for _, para := range d.Paragraphs() {
		t.placeNewRuns(para)
	}
	d.Walk(func(id doctree.NodeID) bool {
		if d.Kind(id) != doctree.KindCell {
			return d.Kind(id) != doctree.KindParagraph
		}
		if tc, ok := d.Payload(id).(*etree.Element); ok && !hasDescendant(tc, "p") {
			tc.AddChild(etree.NewElement(qualify(tc.Space, "p")))
		}
		return true
	})
}

// placeNewRuns gives runs created after loading an element, placed after
// the element of the preceding node in the paragraph.
func (t *Template) placeNewRuns(para doctree.NodeID) {
	d := t.Doc
	pEl, ok := d.Payload(para).(*etree.Element)
	if !ok {
		return
	}
	var prev *etree.Element
	for _, c := range d.Children(para) {
		if el, ok := d.Payload(c).(*etree.Element); ok {
			prev = el
			continue
		}
		if d.Kind(c) != doctree.KindRun {
			continue
		}
		el := etree.NewElement(qualify(pEl.Space, "r"))
		writeRun(el, *d.Run(c))
		switch {
		case prev != nil && prev.Parent() != nil:
			prev.Parent().InsertChildAt(prev.Index()+1, el)
		case child(pEl, "pPr") != nil:
			pEl.InsertChildAt(child(pEl, "pPr").Index()+1, el)
		default:
			pEl.InsertChildAt(0, el)
		}
		d.SetPayload(c, el)
		prev = el
	}
}

func writeRun(el *etree.Element, r doctree.Run) {
	old := readRun(el)
	writeProps(el, old, r)
	if old.Text != r.Text {
		writeText(el, r.Text)
	}
}

// writeText replaces the content of a run, keeping its property block.
func writeText(el *etree.Element, text string) {
	for _, tok := range append([]etree.Token(nil), el.Child...) {
		if c, ok := tok.(*etree.Element); ok && c.Tag == "rPr" {
			continue
		}
		el.RemoveChild(tok)
	}
	var seg strings.Builder
	flush := func() {
		if seg.Len() == 0 {
			return
		}
		t := el.CreateElement(qualify(el.Space, "t"))
		t.CreateAttr("xml:space", "preserve")
		t.SetText(seg.String())
		seg.Reset()
	}
	for _, ch := range text {
		switch ch {
		case '\t':
			flush()
			el.CreateElement(qualify(el.Space, "tab"))
		case '\n':
			flush()
			el.CreateElement(qualify(el.Space, "br"))
		default:
			seg.WriteRune(ch)
		}
	}
	flush()
}

func hasDescendant(el *etree.Element, tag string) bool {
	for _, c := range el.ChildElements() {
		if c.Tag == tag || hasDescendant(c, tag) {
			return true
		}
	}
	return false
}
