package domain

import (
	"errors"
	"fmt"
)

// ErrMonitorFailure is the opaque category every fatal monitor error belongs to.
// Callers that only need to know "the monitor gave up" check for this one.
var ErrMonitorFailure = errors.New("epa monitor failure")

// ErrConfiguration is returned when the automaton or the subject metadata
// cannot be resolved, e.g. a state without a query capability.
var ErrConfiguration = errors.New("configuration error")

// ErrMalformedTrace is returned when the observed calls cannot form a valid
// trace: an object in two states at once, a method exit without entry state,
// or a constructor that did not start from the initial state.
var ErrMalformedTrace = errors.New("malformed trace")

// ErrInternalConsistency is returned when the call stack discipline is broken.
// It indicates an instrumentation bug.
var ErrInternalConsistency = errors.New("internal consistency violation")

// ErrPredicate is returned when a state predicate fails or panics.
var ErrPredicate = errors.New("state predicate failed")

// Failure wraps a fatal monitor error together with the hook that raised it.
// It matches both ErrMonitorFailure and the specific kind with errors.Is.
type Failure struct {
	Op  string // "enter", "exit", "construct" or "record"
	Err error
}

// NewFailure wraps err unless it already is a Failure.
func NewFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return err
	}
	return &Failure{Op: op, Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMonitorFailure, f.Op, f.Err)
}

func (f *Failure) Unwrap() []error {
	return []error{ErrMonitorFailure, f.Err}
}

// Kind returns the specific sentinel behind the failure, or nil when the
// underlying error is of another kind (e.g. a recorder error).
func (f *Failure) Kind() error {
	for _, kind := range []error{ErrConfiguration, ErrMalformedTrace, ErrInternalConsistency, ErrPredicate} {
		if errors.Is(f.Err, kind) {
			return kind
		}
	}
	return nil
}

// ErrSubjectNotFound is returned by trace readers for an unknown subject.
var ErrSubjectNotFound = errors.New("subject not found")
