package epa

import (
	"fmt"
	"sync"

	"github.com/aretw0/epa/pkg/domain"
)

// The process-wide monitor serves instrumented call sites that cannot be
// handed a *Monitor. It is built on first access from the options given
// to Setup.
var (
	globalMu     sync.Mutex
	globalOpts   []Option
	globalSet    bool
	globalTarget *Monitor
	globalSeq    *domain.SubjectSequence
)

// Setup registers the configuration of the process-wide monitor and drops
// any instance built from a previous configuration.
func Setup(opts ...Option) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalOpts = append([]Option(nil), opts...)
	globalSet = true
	globalTarget = nil
	globalSeq = domain.NewSubjectSequence(0)
}

// Instance returns the process-wide monitor, building it on first access.
func Instance() (*Monitor, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalTarget != nil {
		return globalTarget, nil
	}
	if !globalSet {
		return nil, domain.NewFailure("construct", fmt.Errorf("%w: epa.Setup was not called", domain.ErrConfiguration))
	}
	// Every instance built from this configuration shares one sequence,
	// so ids stay unique in the recorder across Reset.
	opts := append([]Option{WithSubjectSequence(globalSeq)}, globalOpts...)
	m, err := New(opts...)
	if err != nil {
		return nil, err
	}
	globalTarget = m
	return m, nil
}

// Reset drops the process-wide monitor. The next access builds a fresh
// one, with an empty call stack and no excluded subjects. Subject ids keep
// counting from where the dropped monitor stopped.
func Reset() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalTarget = nil
}

// Enter calls Enter on the process-wide monitor.
func Enter(owner, signature string, subject any) error {
	m, err := Instance()
	if err != nil {
		return err
	}
	return m.Enter(owner, signature, subject)
}

// Exit calls Exit on the process-wide monitor.
func Exit(owner, signature string, subject any, thrown error) error {
	m, err := Instance()
	if err != nil {
		return err
	}
	return m.Exit(owner, signature, subject, thrown)
}

// Call calls Call on the process-wide monitor.
func Call(owner, signature string, subject any, fn func() error) error {
	m, err := Instance()
	if err != nil {
		return err
	}
	return m.Call(owner, signature, subject, fn)
}

// SetEnabled switches the process-wide monitor on or off.
func SetEnabled(enabled bool) error {
	m, err := Instance()
	if err != nil {
		return err
	}
	m.SetEnabled(enabled)
	return nil
}

// IsEnabled reports whether the process-wide monitor exists and is enabled.
// It never builds the monitor.
func IsEnabled() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalTarget != nil && globalTarget.Enabled()
}
