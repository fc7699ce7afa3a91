package docxfile

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/dgallion1/docfill/internal/doctree"
)

// rPrOrder is the child sequence of a run property block. Elements the
// writer adds are placed by it; unknown tags go last.
var rPrOrder = map[string]int{}

func init() {
	for i, tag := range []string{
		"rStyle", "rFonts", "b", "bCs", "i", "iCs", "caps", "smallCaps", "strike",
		"dstrike", "outline", "shadow", "emboss", "imprint", "noProof", "snapToGrid",
		"vanish", "webHidden", "color", "spacing", "w", "kern", "position", "sz",
		"szCs", "highlight", "u", "effect", "bdr", "shd", "fitText", "vertAlign",
		"rtl", "cs", "em", "lang", "eastAsianLayout", "specVanish", "oMath", "rPrChange",
	} {
		rPrOrder[tag] = i
	}
}

// modelled lists the rPr children mapped onto doctree.Run fields. Every
// other child is carried in Run.Extra.
var modelled = map[string]bool{"b": true, "i": true, "u": true, "sz": true, "rFonts": true, "highlight": true}

func child(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func attr(el *etree.Element, key string) (string, bool) {
	for _, a := range el.Attr {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func qualify(space, tag string) string {
	if space == "" {
		return tag
	}
	return space + ":" + tag
}

// localName keys an attribute relative to the prefix of its property
// block: "val" for w:val, "w14:val" for a foreign one.
func localName(space string, a etree.Attr) string {
	if a.Space == "" || a.Space == space {
		return a.Key
	}
	return a.Space + ":" + a.Key
}

// propTag names a property element the same way: "color" for w:color,
// "w14:glow" for a foreign child.
func propTag(space string, el *etree.Element) string {
	if el.Space == space {
		return el.Tag
	}
	return qualify(el.Space, el.Tag)
}

func toggle(el *etree.Element) doctree.Toggle {
	if el == nil {
		return doctree.Unset
	}
	v, ok := attr(el, "val")
	if !ok {
		return doctree.On
	}
	switch strings.ToLower(v) {
	case "0", "false", "off":
		return doctree.Off
	}
	return doctree.On
}

// readProps maps a w:rPr element onto run formatting.
func readProps(rpr *etree.Element) doctree.Run {
	var r doctree.Run
	if rpr == nil {
		return r
	}
	r.Bold = toggle(child(rpr, "b"))
	r.Italic = toggle(child(rpr, "i"))
	if u := child(rpr, "u"); u != nil {
		val, _ := attr(u, "val")
		if val == "none" {
			r.Underline = doctree.Off
		} else {
			r.Underline = doctree.On
			r.UnderlineStyle = val
		}
	}
	if sz := child(rpr, "sz"); sz != nil {
		v, _ := attr(sz, "val")
		if half, err := strconv.ParseFloat(v, 64); err == nil {
			r.Size = half / 2
		}
	}
	if f := child(rpr, "rFonts"); f != nil {
		r.Font, _ = attr(f, "ascii")
		if r.Font == "" {
			r.Font, _ = attr(f, "hAnsi")
		}
	}
	if h := child(rpr, "highlight"); h != nil {
		r.Highlight, _ = attr(h, "val")
		if r.Highlight == "" {
			r.Highlight = "auto"
		}
	}
	for _, c := range rpr.ChildElements() {
		if c.Space == rpr.Space && modelled[c.Tag] {
			continue
		}
		p := doctree.Prop{Tag: propTag(rpr.Space, c), Attrs: map[string]string{}}
		for _, a := range c.Attr {
			p.Attrs[localName(rpr.Space, a)] = a.Value
		}
		r.Extra = append(r.Extra, p)
	}
	return r
}

func sameFormatting(a, b doctree.Run) bool {
	if a.Bold != b.Bold || a.Italic != b.Italic || a.Underline != b.Underline ||
		a.UnderlineStyle != b.UnderlineStyle || a.Size != b.Size || a.Font != b.Font ||
		a.Highlight != b.Highlight || len(a.Extra) != len(b.Extra) {
		return false
	}
	for i := range a.Extra {
		if a.Extra[i].Tag != b.Extra[i].Tag || !maps.Equal(a.Extra[i].Attrs, b.Extra[i].Attrs) {
			return false
		}
	}
	return true
}

// writeProps edits the rPr of run element r from the formatting old to
// the formatting want. Only properties that differ are touched, so any
// markup the model does not describe stays as it was.
func writeProps(r *etree.Element, old, want doctree.Run) {
	if sameFormatting(old, want) {
		return
	}
	rpr := child(r, "rPr")
	if rpr == nil {
		rpr = etree.NewElement(qualify(r.Space, "rPr"))
		r.InsertChildAt(0, rpr)
	}
	space := rpr.Space

	setToggle := func(tag string, from, to doctree.Toggle) {
		if from == to {
			return
		}
		if c := child(rpr, tag); c != nil {
			rpr.RemoveChild(c)
		}
		switch to {
		case doctree.On:
			insertOrdered(rpr, etree.NewElement(qualify(space, tag)))
		case doctree.Off:
			c := etree.NewElement(qualify(space, tag))
			c.CreateAttr(qualify(space, "val"), "0")
			insertOrdered(rpr, c)
		}
	}
	setToggle("b", old.Bold, want.Bold)
	setToggle("i", old.Italic, want.Italic)

	if old.Underline != want.Underline || old.UnderlineStyle != want.UnderlineStyle {
		switch want.Underline {
		case doctree.Unset:
			removeChild(rpr, "u")
		case doctree.On:
			val := want.UnderlineStyle
			if val == "" {
				val = "single"
			}
			ensure(rpr, "u").CreateAttr(qualify(space, "val"), val)
		case doctree.Off:
			ensure(rpr, "u").CreateAttr(qualify(space, "val"), "none")
		}
	}
	if old.Size != want.Size {
		if want.Size > 0 {
			ensure(rpr, "sz").CreateAttr(qualify(space, "val"), strconv.FormatFloat(want.Size*2, 'f', -1, 64))
		} else {
			removeChild(rpr, "sz")
		}
	}
	if old.Font != want.Font {
		if want.Font != "" {
			f := ensure(rpr, "rFonts")
			f.CreateAttr(qualify(space, "ascii"), want.Font)
			f.CreateAttr(qualify(space, "hAnsi"), want.Font)
		} else if f := child(rpr, "rFonts"); f != nil {
			f.RemoveAttr(qualify(space, "ascii"))
			f.RemoveAttr(qualify(space, "hAnsi"))
			if len(f.Attr) == 0 {
				rpr.RemoveChild(f)
			}
		}
	}
	if old.Highlight != want.Highlight {
		if want.Highlight != "" {
			ensure(rpr, "highlight").CreateAttr(qualify(space, "val"), want.Highlight)
		} else {
			removeChild(rpr, "highlight")
		}
	}

	writeExtra(rpr, old.Extra, want.Extra)

	if len(rpr.ChildElements()) == 0 && len(rpr.Attr) == 0 {
		r.RemoveChild(rpr)
	}
}

func writeExtra(rpr *etree.Element, old, want []doctree.Prop) {
	space := rpr.Space
	find := func(tag string) *etree.Element {
		for _, c := range rpr.ChildElements() {
			if propTag(space, c) == tag {
				return c
			}
		}
		return nil
	}
	before := map[string]map[string]string{}
	for _, p := range old {
		before[p.Tag] = p.Attrs
	}
	after := map[string]bool{}
	for _, p := range want {
		after[p.Tag] = true
	}

	for _, p := range old {
		if !after[p.Tag] {
			if c := find(p.Tag); c != nil {
				rpr.RemoveChild(c)
			}
		}
	}
	for _, p := range want {
		attrs, had := before[p.Tag]
		if had && maps.Equal(attrs, p.Attrs) {
			continue
		}
		c := find(p.Tag)
		if c == nil {
			tag := p.Tag
			if !strings.Contains(tag, ":") {
				tag = qualify(space, tag)
			}
			c = etree.NewElement(tag)
			insertOrdered(rpr, c)
		}
		c.Attr = nil
		for _, k := range slices.Sorted(maps.Keys(p.Attrs)) {
			key := k
			if !strings.Contains(key, ":") {
				key = qualify(space, key)
			}
			c.CreateAttr(key, p.Attrs[k])
		}
	}
}

func removeChild(rpr *etree.Element, tag string) {
	if c := child(rpr, tag); c != nil {
		rpr.RemoveChild(c)
	}
}

// ensure returns the rPr child with tag, adding it in sequence when absent.
func ensure(rpr *etree.Element, tag string) *etree.Element {
	if c := child(rpr, tag); c != nil {
		return c
	}
	c := etree.NewElement(qualify(rpr.Space, tag))
	insertOrdered(rpr, c)
	return c
}

func insertOrdered(rpr, c *etree.Element) {
	rank, known := rPrOrder[c.Tag]
	if !known || c.Space != rpr.Space {
		rank = len(rPrOrder)
	}
	for _, sib := range rpr.ChildElements() {
		r, ok := rPrOrder[sib.Tag]
		if !ok || sib.Space != rpr.Space {
			r = len(rPrOrder)
		}
		if r > rank {
			rpr.InsertChildAt(sib.Index(), c)
			return
		}
	}
	rpr.AddChild(c)
}
