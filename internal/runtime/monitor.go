package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/aretw0/epa/internal/logging"
	"github.com/aretw0/epa/pkg/capability"
	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
)

// Monitor validates calls into a subject type against an automaton and
// records the observed transitions.
//
// The monitor assumes every hook call happens on one logical thread and
// that classified calls are strictly nested. It does no locking.
type Monitor struct {
	automaton *domain.Automaton
	tables    *capability.Tables
	states    []capability.StateBinding
	taxonomy  *domain.Taxonomy
	recorder  ports.TransitionRecorder
	siblings  []ports.Suspendable
	hooks     domain.MonitorHooks
	logger    *slog.Logger
	ctx       context.Context

	enabled bool
	stack   callStack
	invalid map[any]struct{}
	ids     map[any]domain.SubjectID
	seq     *domain.SubjectSequence
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithTaxonomy sets the error categories used by exception policies.
func WithTaxonomy(t *domain.Taxonomy) MonitorOption {
	return func(m *Monitor) {
		m.taxonomy = t
	}
}

// WithRecorder sets the transition sink.
func WithRecorder(r ports.TransitionRecorder) MonitorOption {
	return func(m *Monitor) {
		m.recorder = r
	}
}

// WithSuspended registers sibling subsystems the guard disables while the
// monitor runs.
func WithSuspended(s ...ports.Suspendable) MonitorOption {
	return func(m *Monitor) {
		m.siblings = append(m.siblings, s...)
	}
}

// WithHooks registers observability hooks.
func WithHooks(h domain.MonitorHooks) MonitorOption {
	return func(m *Monitor) {
		m.hooks = h
	}
}

// WithLogger sets the monitor logger.
func WithLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = l
	}
}

// WithSequence sets where subject ids come from.
func WithSequence(seq *domain.SubjectSequence) MonitorOption {
	return func(m *Monitor) {
		m.seq = seq
	}
}

// WithContext sets the context handed to the recorder.
func WithContext(ctx context.Context) MonitorOption {
	return func(m *Monitor) {
		m.ctx = ctx
	}
}

// NewMonitor creates an enabled monitor over resolved tables.
func NewMonitor(automaton *domain.Automaton, tables *capability.Tables, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		automaton: automaton,
		tables:    tables,
		states:    tables.States(),
		taxonomy:  domain.NewTaxonomy(),
		logger:    logging.NewNop(),
		ctx:       context.Background(),
		enabled:   true,
		invalid:   make(map[any]struct{}),
		ids:       make(map[any]domain.SubjectID),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.seq == nil {
		m.seq = domain.NewSubjectSequence(0)
	}
	return m
}

// Automaton returns the automaton the monitor validates against.
func (m *Monitor) Automaton() *domain.Automaton { return m.automaton }

// Enabled reports whether the hooks are active.
func (m *Monitor) Enabled() bool { return m.enabled }

// SetEnabled switches the hooks on or off, e.g. around setup code.
func (m *Monitor) SetEnabled(enabled bool) { m.enabled = enabled }

// Depth returns the number of classified calls in progress.
func (m *Monitor) Depth() int { return len(m.stack) }

// IsInvalid reports whether subject was excluded from tracing.
func (m *Monitor) IsInvalid(subject any) bool {
	key, err := identity(subject)
	if err != nil {
		return false
	}
	_, ok := m.invalid[key]
	return ok
}

// Reset clears the call stack, the invalid set and the known subjects.
// The id sequence is not rewound: the recorder may still hold the trace
// of the previous execution.
func (m *Monitor) Reset() {
	m.stack = nil
	m.invalid = make(map[any]struct{})
	m.ids = make(map[any]domain.SubjectID)
}

// CurrentState samples the abstract state of subject under the
// reentrancy guard.
func (m *Monitor) CurrentState(subject any) (state domain.State, err error) {
	defer m.fail("state", &err)
	defer m.suspendAll()()
	return m.currentState(subject)
}

// Enter is the hook instrumentation calls before an operation runs.
// subject may be nil for constructors.
//
// A subject the monitor has never traced and that no state query
// classifies is assumed to be in the initial state, not a malformed trace.
func (m *Monitor) Enter(owner, signature string, subject any) (err error) {
	m.logger.Debug("entering operation", "owner", owner, "signature", signature)
	if !m.enabled {
		return nil
	}
	defer m.fail("enter", &err)
	resume := m.suspendAll()
	defer resume()

	// A new object is, by definition, in the initial state.
	if op, ok := m.tables.Constructor(signature); ok {
		m.stack.push(frame{owner: owner, signature: signature, action: op.Action, pre: m.automaton.Initial()})
		return nil
	}

	op, ok := m.tables.Method(signature)
	if !ok {
		return nil
	}
	key, err := identity(subject)
	if err != nil {
		return err
	}
	pre, err := m.currentState(subject)
	if err != nil {
		return err
	}
	// An object the monitor has never traced and that no predicate can
	// classify has not left the initial state yet.
	if _, seen := m.ids[key]; !seen && pre == domain.NoState {
		pre = m.automaton.Initial()
	}
	m.stack.push(frame{owner: owner, signature: signature, action: op.Action, pre: pre})
	return nil
}

// Exit is the hook instrumentation calls after an operation returned.
// thrown is the error the operation returned, if any.
func (m *Monitor) Exit(owner, signature string, subject any, thrown error) (err error) {
	if thrown == nil {
		m.logger.Debug("exiting operation", "owner", owner, "signature", signature)
	} else {
		m.logger.Debug("exiting operation with error", "owner", owner, "signature", signature, "error", thrown)
	}
	if !m.enabled {
		return nil
	}
	defer m.fail("exit", &err)
	resume := m.suspendAll()
	defer resume()

	if op, ok := m.tables.Constructor(signature); ok {
		return m.afterConstructor(owner, signature, op, subject, thrown)
	}
	if op, ok := m.tables.Method(signature); ok {
		return m.afterMethod(owner, signature, op, subject, thrown)
	}
	return nil
}

func (m *Monitor) afterConstructor(owner, signature string, op capability.ResolvedOperation, subject any, thrown error) error {
	f, err := m.stack.pop(owner, signature)
	if err != nil {
		return err
	}

	// A partially constructed object has no protocol state to speak of.
	if thrown != nil {
		m.logger.Debug("constructor failed, no transition recorded", "owner", owner, "signature", signature, "error", thrown)
		return nil
	}

	if f.pre != m.automaton.Initial() {
		return fmt.Errorf("%w: new object cannot have a previous state different than initial: %s", domain.ErrMalformedTrace, f.pre)
	}

	key, err := identity(subject)
	if err != nil {
		return err
	}
	post, err := m.currentState(subject)
	if err != nil {
		return err
	}
	return m.record(key, domain.Transition{From: f.pre, Action: op.Action, To: post})
}

func (m *Monitor) afterMethod(owner, signature string, op capability.ResolvedOperation, subject any, thrown error) error {
	f, err := m.stack.pop(owner, signature)
	if err != nil {
		return err
	}

	key, err := identity(subject)
	if err != nil {
		return err
	}
	if _, ok := m.invalid[key]; ok {
		return nil
	}

	if f.pre == domain.NoState {
		return fmt.Errorf("%w: object has no previous state: %s action %s", domain.ErrMalformedTrace, f, op.Action)
	}

	if thrown != nil && !ActionEnabled(m.taxonomy, op.Policy, thrown) {
		m.invalid[key] = struct{}{}
		s := m.subject(key)
		m.logger.Warn("subject excluded from trace after non-enabled error",
			"subject", s.ID, "signature", signature, "category", m.taxonomy.CategoryOf(thrown))
		m.hooks.FireInvalidated(s, signature, thrown)
		return nil
	}

	post, err := m.currentState(subject)
	if err != nil {
		return err
	}
	return m.record(key, domain.Transition{From: f.pre, Action: op.Action, To: post})
}

func (m *Monitor) record(key any, t domain.Transition) error {
	s := m.subject(key)
	if m.recorder != nil {
		if err := m.recorder.Record(m.ctx, s, t); err != nil {
			return domain.NewFailure("record", fmt.Errorf("record %s for subject %d: %w", t, s.ID, err))
		}
	}
	m.logger.Debug("transition recorded", "subject", s.ID, "transition", t.String())
	m.hooks.FireTransition(s, t)
	return nil
}

// subject returns the recorder identity of key, assigning one on first sight.
func (m *Monitor) subject(key any) domain.Subject {
	id, ok := m.ids[key]
	if !ok {
		id = m.seq.Next()
		m.ids[key] = id
	}
	return domain.Subject{ID: id, Type: m.tables.Subject}
}

// fail wraps a fatal error into a domain.Failure and reports it.
func (m *Monitor) fail(op string, err *error) {
	if *err == nil {
		return
	}
	*err = domain.NewFailure(op, *err)
	m.logger.Error("monitor failure", "op", op, "error", *err)
	m.hooks.FireFailure(*err)
}

// identity returns a map key that compares subjects by reference.
func identity(subject any) (any, error) {
	v := reflect.ValueOf(subject)
	switch v.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		if !v.IsNil() {
			return subject, nil
		}
	}
	return nil, fmt.Errorf("%w: subject %T has no reference identity", domain.ErrInternalConsistency, subject)
}
