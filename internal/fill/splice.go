package fill

import "github.com/dgallion1/docfill/internal/doctree"

// runSpan is a run together with its byte range in the paragraph text.
type runSpan struct {
	id         doctree.NodeID
	start, end int
}

func paragraphSpans(d *doctree.Document, para doctree.NodeID) []runSpan {
	var spans []runSpan
	off := 0
	for _, c := range d.Children(para) {
		if d.Kind(c) != doctree.KindRun {
			continue
		}
		n := len(d.Run(c).Text)
		spans = append(spans, runSpan{id: c, start: off, end: off + n})
		off += n
	}
	return spans
}

// locate returns the indexes into spans of the runs holding the first and
// last byte of occ.
func locate(spans []runSpan, occ Occurrence) (first, last int, ok bool) {
	first, last = -1, -1
	for i, s := range spans {
		if s.start == s.end {
			continue
		}
		if first < 0 && occ.Start >= s.start && occ.Start < s.end {
			first = i
		}
		if occ.End-1 >= s.start && occ.End-1 < s.end {
			last = i
			break
		}
	}
	return first, last, first >= 0 && last >= first
}

// Splice replaces one placeholder occurrence in para with value. Formatting
// of the text around the token is kept: the run holding the token's first
// byte keeps its formatting and absorbs the value, and the run holding the
// last byte keeps the remainder, possibly empty. Runs strictly inside the
// token are removed; the end run is never among them, so it always
// survives to carry the remainder in its own formatting.
//
// touch, when non-nil, is called with each run the splice rewrites, before
// and after the rewrite. Splice reports false and leaves the paragraph
// untouched when the occurrence does not line up with the paragraph's runs.
func Splice(d *doctree.Document, para doctree.NodeID, occ Occurrence, value string, touch func(doctree.NodeID)) bool {
	if touch == nil {
		touch = func(doctree.NodeID) {}
	}
	spans := paragraphSpans(d, para)
	first, last, ok := locate(spans, occ)
	if !ok {
		return false
	}

	start := spans[first]
	if first == last {
		touch(start.id)
		r := d.Run(start.id)
		r.Text = r.Text[:occ.Start-start.start] + value + r.Text[occ.End-start.start:]
		touch(start.id)
		return true
	}

	end := spans[last]
	prefix := d.Run(start.id).Text[:occ.Start-start.start]
	suffix := d.Run(end.id).Text[occ.End-end.start:]

	touch(start.id)
	touch(end.id)
	for _, s := range spans[first+1 : last] {
		d.Remove(s.id)
	}

	d.Run(start.id).Text = prefix + value
	touch(start.id)
	d.Run(end.id).Text = suffix
	touch(end.id)
	return true
}
