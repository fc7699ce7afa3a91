package fill

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Field is one named value of a data record. Null marks an explicitly
// absent value (an empty spreadsheet cell, a missing column).
type Field struct {
	Name  string
	Value string
	Null  bool
}

// Record is an ordered set of fields. Order matters only when two names
// normalize to the same key; the first one wins.
type Record struct {
	fields []Field
}

// NewRecord builds a record from fields in the given order.
func NewRecord(fields ...Field) Record {
	return Record{fields: append([]Field(nil), fields...)}
}

// RecordFromMap builds a record from m with names in sorted order.
func RecordFromMap(m map[string]string) Record {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	r := Record{fields: make([]Field, 0, len(names))}
	for _, n := range names {
		r.fields = append(r.fields, Field{Name: n, Value: m[n]})
	}
	return r
}

// Set appends or replaces the field with exactly this name.
func (r *Record) Set(name, value string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i] = Field{Name: name, Value: value}
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// SetNull records name as explicitly absent.
func (r *Record) SetNull(name string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i] = Field{Name: name, Null: true}
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Null: true})
}

// Fields returns the record's fields in order.
func (r Record) Fields() []Field { return r.fields }

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Get returns the value stored under exactly name.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, !f.Null
		}
	}
	return "", false
}

// NormalizeKey folds case, applies compatibility normalization, collapses
// internal whitespace to one space and trims the ends.
func NormalizeKey(s string) string {
	// A Caser is stateful; build one per call so engines on different
	// goroutines never share it.
	return strings.Join(strings.Fields(cases.Fold().String(norm.NFKC.String(s))), " ")
}

// lookup resolves placeholder names against a record.
type lookup struct {
	fields []Field
	exact  map[string]int
	byKey  map[string]int
}

func newLookup(r Record, strict bool) (*lookup, error) {
	lk := &lookup{
		fields: r.fields,
		exact:  make(map[string]int, len(r.fields)),
		byKey:  make(map[string]int, len(r.fields)),
	}
	for i, f := range r.fields {
		if _, ok := lk.exact[f.Name]; !ok {
			lk.exact[f.Name] = i
		}
		key := NormalizeKey(f.Name)
		if prev, ok := lk.byKey[key]; ok {
			if strict && r.fields[prev].Name != f.Name {
				return nil, &EngineError{
					Kind: AmbiguousKey,
					Err:  fmt.Errorf("%q and %q both normalize to %q", r.fields[prev].Name, f.Name, key),
				}
			}
			continue
		}
		lk.byKey[key] = i
	}
	return lk, nil
}

// resolve prefers a field whose name equals the placeholder exactly and
// falls back to the first field with the same normalized key.
func (lk *lookup) resolve(name string) (Field, bool) {
	if i, ok := lk.exact[name]; ok {
		return lk.fields[i], true
	}
	if i, ok := lk.byKey[NormalizeKey(name)]; ok {
		return lk.fields[i], true
	}
	return Field{}, false
}
