package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docfill/internal/fill"
)

const maxNameLen = 100

var unsafeNameChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_",
	`\`, "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeFilename makes name safe to use as a file name: path and shell
// metacharacters become underscores, surrounding dots and spaces are
// trimmed and the result is capped at 100 characters with the extension
// kept. An empty result yields fallback.
func SanitizeFilename(name, fallback string) string {
	s := unsafeNameChars.Replace(name)
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	s = strings.Trim(s, ". ")
	if utf8.RuneCountInString(s) > maxNameLen {
		ext := ""
		if i := strings.LastIndexByte(s, '.'); i > 0 && len(s)-i <= 10 {
			ext = s[i:]
		}
		runes := []rune(strings.TrimSuffix(s, ext))
		s = strings.TrimRight(string(runes[:maxNameLen-utf8.RuneCountInString(ext)]), ". ") + ext
	}
	if s == "" {
		return fallback
	}
	return s
}

// OutputName returns the per-record file stem "<Name>_<n>" where Name is the
// record's value for field and n is the 1-based record number.
func OutputName(rec fill.Record, field string, index int) string {
	name := SanitizeFilename(fieldValue(rec, field), "Record")
	return fmt.Sprintf("%s_%d", name, index+1)
}

// fieldValue looks field up exactly, then by normalized key. Blank markers
// such as "nan" count as empty.
func fieldValue(rec fill.Record, field string) string {
	v, ok := rec.Get(field)
	if !ok {
		key := fill.NormalizeKey(field)
		for _, f := range rec.Fields() {
			if !f.Null && fill.NormalizeKey(f.Name) == key {
				v, ok = f.Value, true
				break
			}
		}
	}
	if fill.IsBlankValue(v, ok) {
		return ""
	}
	return strings.TrimSpace(v)
}
