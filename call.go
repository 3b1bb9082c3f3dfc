package epa

import (
	"fmt"
)

// PanicCategory is the error category of a panic escaping an operation.
const PanicCategory = "panic"

// PanicError is what Exit receives when an instrumented operation panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorCategory implements domain.Categorized.
func (e *PanicError) ErrorCategory() string { return PanicCategory }

// Call runs fn between Enter and Exit on behalf of a hand-instrumented
// method. It returns the monitor failure if there is one, else the error
// of fn. A panic in fn is reported to Exit as a *PanicError and re-raised.
func (m *Monitor) Call(owner, signature string, subject any, fn func() error) error {
	if err := m.Enter(owner, signature, subject); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			m.exitAfterPanic(owner, signature, subject, r)
		}
	}()

	thrown := fn()
	if err := m.Exit(owner, signature, subject, thrown); err != nil {
		return err
	}
	return thrown
}

// Construct runs a constructor between Enter and Exit. The value it
// returns is the new subject.
func Construct[T any](m *Monitor, owner, signature string, fn func() (T, error)) (T, error) {
	var zero T
	if err := m.Enter(owner, signature, nil); err != nil {
		return zero, err
	}

	// A panicking constructor produced no subject.
	defer func() {
		if r := recover(); r != nil {
			m.exitAfterPanic(owner, signature, nil, r)
		}
	}()

	v, thrown := fn()
	if err := m.Exit(owner, signature, v, thrown); err != nil {
		return zero, err
	}
	return v, thrown
}

// exitAfterPanic closes the frame of a panicking operation, then lets the
// panic continue.
func (m *Monitor) exitAfterPanic(owner, signature string, subject any, r any) {
	if err := m.Exit(owner, signature, subject, &PanicError{Value: r}); err != nil {
		m.logger.Error("exit after panic failed", "owner", owner, "signature", signature, "error", err)
	}
	panic(r)
}
