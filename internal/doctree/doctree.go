// Package doctree is the in-memory model of a word-processing document.
//
// Nodes live in a single arena owned by the Document and are addressed by
// NodeID. Every node except the root has exactly one parent, and a parent
// owns an ordered list of child IDs. Removing a node erases its ID from the
// parent's list; the arena slot stays allocated so IDs held by callers never
// dangle, but a removed node is no longer reachable from the root.
package doctree

import "strings"

// NodeID addresses a node inside a Document's arena.
type NodeID int32

// None is the zero parent of the root and of detached nodes.
const None NodeID = -1

// Kind identifies what a node represents.
type Kind uint8

const (
	KindDocument Kind = iota
	KindParagraph
	KindTable
	KindRow
	KindCell
	KindRun
	// KindOpaque is a block or inline element the model carries through
	// untouched (section properties, bookmarks, drawings, deleted text). It
	// contributes no text to a paragraph.
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindParagraph:
		return "paragraph"
	case KindTable:
		return "table"
	case KindRow:
		return "row"
	case KindCell:
		return "cell"
	case KindRun:
		return "run"
	case KindOpaque:
		return "opaque"
	}
	return "unknown"
}

type node struct {
	kind     Kind
	parent   NodeID
	children []NodeID
	run      Run
	// payload holds format-specific data a codec needs to round-trip the
	// node (paragraph properties, table grid, the opaque element itself).
	payload any
}

// Document owns every node of one loaded template.
type Document struct {
	nodes []node
}

// New returns an empty document holding only its root.
func New() *Document {
	d := &Document{nodes: make([]node, 0, 256)}
	d.nodes = append(d.nodes, node{kind: KindDocument, parent: None})
	return d
}

// Root returns the document node.
func (d *Document) Root() NodeID { return 0 }

// Len reports the number of arena slots, including detached nodes.
func (d *Document) Len() int { return len(d.nodes) }

// Kind returns the kind of id.
func (d *Document) Kind(id NodeID) Kind { return d.nodes[id].kind }

// Parent returns the parent of id, or None for the root and removed nodes.
func (d *Document) Parent(id NodeID) NodeID { return d.nodes[id].parent }

// Children returns the ordered child IDs of id. The slice is owned by the
// document and must not be modified by the caller.
func (d *Document) Children(id NodeID) []NodeID { return d.nodes[id].children }

// Payload returns the codec payload attached to id.
func (d *Document) Payload(id NodeID) any { return d.nodes[id].payload }

// SetPayload attaches codec data to id.
func (d *Document) SetPayload(id NodeID, p any) { d.nodes[id].payload = p }

// Attached reports whether id is still reachable from the root.
func (d *Document) Attached(id NodeID) bool {
	for id != d.Root() {
		p := d.nodes[id].parent
		if p == None {
			return false
		}
		id = p
	}
	return true
}

func (d *Document) alloc(kind Kind, parent NodeID) NodeID {
	id := NodeID(len(d.nodes))
	d.nodes = append(d.nodes, node{kind: kind, parent: parent})
	return id
}

func (d *Document) appendChild(parent NodeID, kind Kind) NodeID {
	id := d.alloc(kind, parent)
	d.nodes[parent].children = append(d.nodes[parent].children, id)
	return id
}

func (d *Document) mustBe(id NodeID, kinds ...Kind) {
	k := d.nodes[id].kind
	for _, want := range kinds {
		if k == want {
			return
		}
	}
	panic("doctree: " + k.String() + " node cannot hold this child")
}

// AddParagraph appends a paragraph to the document body or to a cell.
func (d *Document) AddParagraph(parent NodeID) NodeID {
	d.mustBe(parent, KindDocument, KindCell)
	return d.appendChild(parent, KindParagraph)
}

// AddTable appends a table to the document body or to a cell.
func (d *Document) AddTable(parent NodeID) NodeID {
	d.mustBe(parent, KindDocument, KindCell)
	return d.appendChild(parent, KindTable)
}

// AddRow appends a row to a table.
func (d *Document) AddRow(table NodeID) NodeID {
	d.mustBe(table, KindTable)
	return d.appendChild(table, KindRow)
}

// AddCell appends a cell to a row.
func (d *Document) AddCell(row NodeID) NodeID {
	d.mustBe(row, KindRow)
	return d.appendChild(row, KindCell)
}

// AddRun appends a run to a paragraph.
func (d *Document) AddRun(para NodeID, r Run) NodeID {
	d.mustBe(para, KindParagraph)
	id := d.appendChild(para, KindRun)
	d.nodes[id].run = r
	return id
}

// AddOpaque appends an element the model does not interpret. Under a
// paragraph it behaves as a zero-length inline; under the body or a cell it
// is a block.
func (d *Document) AddOpaque(parent NodeID, payload any) NodeID {
	d.mustBe(parent, KindDocument, KindCell, KindParagraph)
	id := d.appendChild(parent, KindOpaque)
	d.nodes[id].payload = payload
	return id
}

// InsertRunAfter places a new run directly after sibling in its paragraph.
func (d *Document) InsertRunAfter(sibling NodeID, r Run) NodeID {
	para := d.nodes[sibling].parent
	if para == None {
		panic("doctree: insert after detached node")
	}
	id := d.alloc(KindRun, para)
	d.nodes[id].run = r
	list := d.nodes[para].children
	pos := indexOf(list, sibling)
	list = append(list, 0)
	copy(list[pos+2:], list[pos+1:])
	list[pos+1] = id
	d.nodes[para].children = list
	return id
}

// Remove detaches id from its parent. It reports false when id was already
// detached or is the root.
func (d *Document) Remove(id NodeID) bool {
	p := d.nodes[id].parent
	if p == None {
		return false
	}
	list := d.nodes[p].children
	pos := indexOf(list, id)
	if pos < 0 {
		return false
	}
	d.nodes[p].children = append(list[:pos], list[pos+1:]...)
	d.nodes[id].parent = None
	return true
}

func indexOf(list []NodeID, id NodeID) int {
	for i, c := range list {
		if c == id {
			return i
		}
	}
	return -1
}

// Run returns a pointer to the run stored at id. The pointer is valid until
// the next node is added to the document.
func (d *Document) Run(id NodeID) *Run {
	if d.nodes[id].kind != KindRun {
		return nil
	}
	return &d.nodes[id].run
}

// Text returns the rendered text of a paragraph: its runs' text in order.
func (d *Document) Text(para NodeID) string {
	var sb strings.Builder
	for _, c := range d.nodes[para].children {
		if d.nodes[c].kind == KindRun {
			sb.WriteString(d.nodes[c].run.Text)
		}
	}
	return sb.String()
}

// Paragraphs returns every attached paragraph in document order, descending
// into table cells (and tables nested in cells).
func (d *Document) Paragraphs() []NodeID {
	var out []NodeID
	d.Walk(func(id NodeID) bool {
		if d.nodes[id].kind == KindParagraph {
			out = append(out, id)
			return false
		}
		return true
	})
	return out
}

// Runs returns every attached run in document order.
func (d *Document) Runs() []NodeID {
	var out []NodeID
	d.Walk(func(id NodeID) bool {
		if d.nodes[id].kind == KindRun {
			out = append(out, id)
		}
		return true
	})
	return out
}

// Walk visits attached nodes depth-first in document order, starting below
// the root. Returning false from fn skips the node's children.
func (d *Document) Walk(fn func(NodeID) bool) {
	var visit func(NodeID)
	visit = func(id NodeID) {
		for _, c := range d.nodes[id].children {
			if fn(c) {
				visit(c)
			}
		}
	}
	visit(d.Root())
}
