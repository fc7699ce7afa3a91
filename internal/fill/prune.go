package fill

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docfill/internal/doctree"
)

// addressLineRe matches the address line 2 and 3 names: "Address 2",
// "Address Line 3", "Addr2", "addr. line-2", "ADDRESS_LINE_3".
var addressLineRe = regexp.MustCompile(`(?i)^\s*addr(?:ess)?\.?[\s_-]*(?:line)?[\s_-]*#?([23])\s*$`)

// IsAddressLine reports whether a placeholder name belongs to the address
// line 2/3 family.
func IsAddressLine(name string) bool {
	return addressLineRe.MatchString(name)
}

// PruneBlankParagraphs removes each paragraph in marked whose text is now
// empty or whitespace. It returns the removed paragraphs. Paragraphs that
// were already detached are skipped.
func PruneBlankParagraphs(d *doctree.Document, marked []doctree.NodeID) []doctree.NodeID {
	var removed []doctree.NodeID
	for _, p := range marked {
		if !d.Attached(p) {
			continue
		}
		if strings.TrimSpace(d.Text(p)) != "" {
			continue
		}
		if d.Remove(p) {
			removed = append(removed, p)
		}
	}
	return removed
}
