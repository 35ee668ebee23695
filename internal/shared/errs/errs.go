// Package errs classifies failures that cross a component boundary.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthentication
	KindConfiguration
	KindTransport
	KindVendor
	KindValidation
	KindIneligibleTarget
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindVendor:
		return "vendor"
	case KindValidation:
		return "validation"
	case KindIneligibleTarget:
		return "ineligible_target"
	default:
		return "unknown"
	}
}

// Error is a classified failure raised at a named stage.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed (%s)", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a kind and stage.
func New(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
