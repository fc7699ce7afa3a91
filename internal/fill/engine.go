// Package fill replaces {Name} placeholders in a loaded document with the
// values of a data record.
//
// An Engine holds only its options and every call loads and owns its own
// document tree. Concurrent workers create one Engine per task; nothing is
// locked.
package fill

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/docfill/internal/doctree"
	"github.com/dgallion1/docfill/internal/docxfile"
)

// Report describes what one fill did.
type Report struct {
	// Replaced counts placeholder occurrences that received a value.
	Replaced int `json:"replaced"`
	// Unresolved lists placeholder names with no matching record field, in
	// first-seen order.
	Unresolved []string `json:"unresolved,omitempty"`
	// Pruned counts paragraphs removed by the compact address-line rule.
	Pruned int `json:"pruned"`
	// HighlightsStripped counts background markings removed from runs.
	HighlightsStripped int `json:"highlights_stripped"`
	// CosmeticErrors counts formatting steps that failed and were skipped.
	CosmeticErrors int `json:"cosmetic_errors"`
	// Missed counts occurrences that could not be mapped onto runs.
	Missed int `json:"missed"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for skipped cosmetic steps.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithStrictKeys makes fills fail with AmbiguousKey when two record fields
// normalize to the same key, instead of keeping the exact-case or first one.
func WithStrictKeys(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// Engine fills templates.
type Engine struct {
	log    *slog.Logger
	strict bool
}

// New returns an Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Fill fills the template at templatePath with data and writes the result
// to outputPath. compact selects the variant whose blank address line 2/3
// paragraphs are removed. On failure nothing is left at outputPath.
func (e *Engine) Fill(templatePath, outputPath string, data Record, compact bool) error {
	_, err := e.FillFile(templatePath, outputPath, data, compact)
	return err
}

// FillFile is Fill returning the fill report.
func (e *Engine) FillFile(templatePath, outputPath string, data Record, compact bool) (Report, error) {
	info, err := os.Stat(templatePath)
	if err != nil {
		return Report{}, classifyOpen(templatePath, err)
	}
	if info.IsDir() {
		return Report{}, &EngineError{Kind: TemplateNotFound, Path: templatePath, Err: errors.New("is a directory")}
	}

	tpl, err := docxfile.Open(templatePath)
	if err != nil {
		return Report{}, classifyOpen(templatePath, err)
	}

	rep, err := e.FillDocument(tpl.Doc, data, compact)
	if err != nil {
		return rep, err
	}

	if err := tpl.Save(outputPath); err != nil {
		return rep, &EngineError{Kind: IOFailure, Path: outputPath, Err: err}
	}
	e.log.Debug("template filled",
		"template", filepath.Base(templatePath),
		"output", filepath.Base(outputPath),
		"replaced", rep.Replaced,
		"pruned", rep.Pruned,
	)
	return rep, nil
}

// FillDocument fills doc in place.
func (e *Engine) FillDocument(doc *doctree.Document, data Record, compact bool) (Report, error) {
	var rep Report
	lk, err := newLookup(data, e.strict)
	if err != nil {
		return rep, err
	}

	strip := func(id doctree.NodeID) {
		n, err := StripHighlight(doc, id)
		rep.HighlightsStripped += n
		if err != nil {
			rep.CosmeticErrors++
			e.log.Warn("highlight strip skipped", "error", err)
		}
	}

	unresolved := map[string]bool{}
	var blankAddress []doctree.NodeID

	for _, para := range doc.Paragraphs() {
		occs := FindPlaceholders(doc.Text(para))
		if len(occs) == 0 {
			continue
		}
		addressBlank := false
		values := make([]string, len(occs))
		found := make([]bool, len(occs))
		for i, occ := range occs {
			f, ok := lk.resolve(occ.Name)
			if !ok {
				if !unresolved[occ.Name] {
					unresolved[occ.Name] = true
					rep.Unresolved = append(rep.Unresolved, occ.Name)
				}
				continue
			}
			found[i] = true
			values[i] = TransformValue(occ.Name, f.Value, !f.Null)
			if compact && values[i] == "" && IsAddressLine(occ.Name) {
				addressBlank = true
			}
		}
		// Right to left: a splice only shifts text after its occurrence, so
		// the offsets of earlier occurrences stay valid.
		for i := len(occs) - 1; i >= 0; i-- {
			if !found[i] {
				continue
			}
			if !Splice(doc, para, occs[i], values[i], strip) {
				rep.Missed++
				e.log.Warn("placeholder not located in runs", "placeholder", occs[i].Name)
				continue
			}
			rep.Replaced++
		}
		if addressBlank {
			blankAddress = append(blankAddress, para)
		}
	}
	if compact {
		rep.Pruned = len(PruneBlankParagraphs(doc, blankAddress))
	}

	for _, id := range doc.Runs() {
		strip(id)
	}
	return rep, nil
}
