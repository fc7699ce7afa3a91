package fill

import "strings"

const (
	nbsp          = "\u00a0"
	zeroWidthNoBr = "\ufeff"
)

// TransformValue prepares a raw record value for insertion under the
// placeholder name. Absent values and the "nan"/"none" sentinels become
// empty. Everything else is trimmed, and email-like values are made
// unbreakable: spaces become non-breaking spaces and every "@" is followed
// by a zero-width no-break marker.
func TransformValue(name, raw string, present bool) string {
	if IsBlankValue(raw, present) {
		return ""
	}
	v := strings.TrimSpace(raw)
	if isEmailLike(name, v) {
		v = strings.ReplaceAll(v, " ", nbsp)
		v = strings.ReplaceAll(v, "@", "@"+zeroWidthNoBr)
	}
	return v
}

// IsBlankValue reports whether a value renders as nothing.
func IsBlankValue(raw string, present bool) bool {
	if !present {
		return true
	}
	v := strings.TrimSpace(raw)
	return v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "none")
}

func isEmailLike(name, value string) bool {
	if strings.Contains(strings.ToLower(name), "email") {
		return true
	}
	return strings.Contains(value, "@") && strings.Contains(value, ".")
}
