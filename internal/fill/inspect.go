package fill

import (
	"github.com/dgallion1/docfill/internal/doctree"
	"github.com/dgallion1/docfill/internal/docxfile"
)

// PlaceholderInfo summarizes one placeholder name found in a template.
type PlaceholderInfo struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Count       int    `json:"count"`
	InTable     bool   `json:"in_table"`
	AddressLine bool   `json:"address_line"`
}

// Inspect lists the placeholders of doc in order of first appearance.
// Names that differ only in case or spacing are reported once, under the
// first spelling seen.
func Inspect(doc *doctree.Document) []PlaceholderInfo {
	var out []PlaceholderInfo
	index := map[string]int{}
	for _, para := range doc.Paragraphs() {
		inTable := inCell(doc, para)
		for _, occ := range FindPlaceholders(doc.Text(para)) {
			key := NormalizeKey(occ.Name)
			if i, ok := index[key]; ok {
				out[i].Count++
				out[i].InTable = out[i].InTable || inTable
				continue
			}
			index[key] = len(out)
			out = append(out, PlaceholderInfo{
				Name:        occ.Name,
				Key:         key,
				Count:       1,
				InTable:     inTable,
				AddressLine: IsAddressLine(occ.Name),
			})
		}
	}
	return out
}

// InspectFile loads the template at path and inspects it.
func InspectFile(path string) ([]PlaceholderInfo, error) {
	tpl, err := docxfile.Open(path)
	if err != nil {
		return nil, classifyOpen(path, err)
	}
	return Inspect(tpl.Doc), nil
}

// InspectBytes inspects a template held in memory.
func InspectBytes(data []byte) ([]PlaceholderInfo, error) {
	tpl, err := docxfile.Load(data)
	if err != nil {
		return nil, classifyOpen("", err)
	}
	return Inspect(tpl.Doc), nil
}

func inCell(doc *doctree.Document, id doctree.NodeID) bool {
	for p := doc.Parent(id); p != doctree.None; p = doc.Parent(p) {
		if doc.Kind(p) == doctree.KindCell {
			return true
		}
	}
	return false
}
