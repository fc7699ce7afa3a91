package fill

import "regexp"

var placeholderRe = regexp.MustCompile(`\{([^}]+)\}`)

// Occurrence is one placeholder token in a paragraph's text. Start and End
// are byte offsets of the braces, End exclusive.
type Occurrence struct {
	Name  string
	Start int
	End   int
}

// FindPlaceholders returns the placeholder tokens in text, left to right.
func FindPlaceholders(text string) []Occurrence {
	locs := placeholderRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Occurrence, 0, len(locs))
	for _, m := range locs {
		out = append(out, Occurrence{Name: text[m[2]:m[3]], Start: m[0], End: m[1]})
	}
	return out
}
