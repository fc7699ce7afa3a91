package fill

import (
	"fmt"

	"github.com/dgallion1/docfill/internal/doctree"
)

// StripHighlight removes every background marking from the run at id: the
// highlight field and any highlight-family or shading property kept from
// the source markup. It returns how many markings were removed. An error
// means the node could not be treated as a run; callers log it and move on.
func StripHighlight(d *doctree.Document, id doctree.NodeID) (int, error) {
	r := d.Run(id)
	if r == nil {
		return 0, fmt.Errorf("strip highlight: node %d is a %s, not a run", id, d.Kind(id))
	}
	n := 0
	if r.Highlight != "" {
		r.Highlight = ""
		n++
	}
	n += r.DropProps(func(p doctree.Prop) bool { return doctree.IsMarkingTag(p.Tag) })
	for _, p := range r.Extra {
		if p.Tag == "" {
			return n, fmt.Errorf("strip highlight: run %d has an unnamed property", id)
		}
	}
	return n, nil
}
