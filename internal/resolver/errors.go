package resolver

import (
	"errors"
	"fmt"
)

// Resolution failure kinds. Each aborts resolution of a sample.
var (
	ErrSampleNotFound    = errors.New("sample not found")
	ErrMetadataMissing   = errors.New("metadata missing")
	ErrMetadataMalformed = errors.New("metadata malformed")
	ErrUnknownClass      = errors.New("unknown class")
	ErrUnknownType       = errors.New("unknown datatype")
	ErrUnknownPeriod     = errors.New("unknown period")
)

// Error describes why a sample could not be resolved.
type Error struct {
	Kind   error
	Sample string
	Path   string
	Detail string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Sample, e.Kind)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap returns the failure kind for errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}
