package doctree

import "strings"

// Toggle is a tri-state boolean property. Unset means the run inherits the
// value from its paragraph or style.
type Toggle uint8

const (
	Unset Toggle = iota
	On
	Off
)

// Prop is a run property the model does not interpret, kept so the codec can
// write it back. Tag is the local element name (for example "color").
type Prop struct {
	Tag   string
	Attrs map[string]string
}

// Run is a contiguous span of text sharing one formatting.
type Run struct {
	Text string

	Bold      Toggle
	Italic    Toggle
	Underline Toggle
	// UnderlineStyle is the underline variant when Underline is On
	// ("single", "double", ...). Empty means single.
	UnderlineStyle string
	// Size is the font size in points; zero means inherited.
	Size float64
	Font string
	// Highlight is the background marker color; empty means none.
	Highlight string

	Extra []Prop
}

// Formatting returns a copy of r with its text cleared. The Extra slice is
// copied so later edits to either run stay independent.
func (r Run) Formatting() Run {
	r.Text = ""
	if r.Extra != nil {
		extra := make([]Prop, len(r.Extra))
		for i, p := range r.Extra {
			attrs := make(map[string]string, len(p.Attrs))
			for k, v := range p.Attrs {
				attrs[k] = v
			}
			extra[i] = Prop{Tag: p.Tag, Attrs: attrs}
		}
		r.Extra = extra
	}
	return r
}

// WithText returns the formatting of r carrying text.
func (r Run) WithText(text string) Run {
	f := r.Formatting()
	f.Text = text
	return f
}

// Prop returns the first unmodelled property with the given tag.
func (r *Run) Prop(tag string) (Prop, bool) {
	for _, p := range r.Extra {
		if p.Tag == tag {
			return p, true
		}
	}
	return Prop{}, false
}

// DropProps removes unmodelled properties matched by fn and reports how many
// were removed.
func (r *Run) DropProps(fn func(Prop) bool) int {
	kept := r.Extra[:0]
	n := 0
	for _, p := range r.Extra {
		if fn(p) {
			n++
			continue
		}
		kept = append(kept, p)
	}
	r.Extra = kept
	return n
}

// HasMarking reports whether the run carries a highlight or shading of any
// representation.
func (r *Run) HasMarking() bool {
	if r.Highlight != "" {
		return true
	}
	for _, p := range r.Extra {
		if IsMarkingTag(p.Tag) {
			return true
		}
	}
	return false
}

// IsMarkingTag reports whether an unmodelled property tag is a background
// marking: character shading or any highlight variant.
func IsMarkingTag(tag string) bool {
	t := strings.ToLower(tag)
	return t == "shd" || strings.Contains(t, "highlight")
}
