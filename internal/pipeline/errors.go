package pipeline

import (
	"errors"
	"fmt"
)

// Kind is the failure category reported to whoever triggered a sync.
type Kind string

const (
	KindSourceUnavailable Kind = "source_unavailable"
	KindRecordMalformed   Kind = "record_malformed"
	KindSchema            Kind = "schema_error"
	KindLoad              Kind = "load_failure"
	KindUnauthorized      Kind = "unauthorized"
)

// Error is a categorized sync failure.
type Error struct {
	Kind  Kind
	State State // State the run was in when it failed
	Err   error
}

// NewError returns a categorized error.
func NewError(kind Kind, state State, err error) *Error {
	return &Error{Kind: kind, State: state, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s while %s: %v", e.Kind, e.State, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail is the human-readable description of the underlying failure.
func (e *Error) Detail() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

// KindOf returns the category of err, or "" if err is not a sync error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
