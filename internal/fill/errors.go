package fill

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/dgallion1/docfill/internal/docxfile"
)

// Kind classifies a fatal fill failure.
type Kind int

const (
	TemplateNotFound Kind = iota + 1
	MalformedDocument
	IOFailure
	AmbiguousKey
)

func (k Kind) String() string {
	switch k {
	case TemplateNotFound:
		return "template not found"
	case MalformedDocument:
		return "malformed document"
	case IOFailure:
		return "io failure"
	case AmbiguousKey:
		return "ambiguous key"
	}
	return "unknown"
}

// EngineError is returned for every failure that aborts one fill.
type EngineError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *EngineError) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EngineError) Unwrap() error { return e.Err }

// Is matches any EngineError of the same kind, so the sentinels below work
// with errors.Is.
func (e *EngineError) Is(target error) bool {
	var t *EngineError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrTemplateNotFound  = &EngineError{Kind: TemplateNotFound}
	ErrMalformedDocument = &EngineError{Kind: MalformedDocument}
	ErrIOFailure         = &EngineError{Kind: IOFailure}
	ErrAmbiguousKey      = &EngineError{Kind: AmbiguousKey}
)

// classifyOpen maps a template load failure onto an engine error kind.
func classifyOpen(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return &EngineError{Kind: TemplateNotFound, Path: path, Err: err}
	case errors.Is(err, docxfile.ErrMalformed):
		return &EngineError{Kind: MalformedDocument, Path: path, Err: err}
	}
	return &EngineError{Kind: TemplateNotFound, Path: path, Err: fmt.Errorf("unreadable: %w", err)}
}
