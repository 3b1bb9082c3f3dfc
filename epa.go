package epa

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/epa/internal/logging"
	"github.com/aretw0/epa/internal/runtime"
	"github.com/aretw0/epa/pkg/capability"
	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
)

// Monitor is the high-level entry point of the library.
// It wraps the internal runtime monitor and is built once per subject type.
type Monitor struct {
	runtime   *runtime.Monitor
	automaton *domain.Automaton
	tables    *capability.Tables

	source    ports.AutomatonSource
	subject   *capability.SubjectType
	recorder  ports.TransitionRecorder
	taxonomy  *domain.Taxonomy
	logger    *slog.Logger
	hooks     domain.MonitorHooks
	suspended []ports.Suspendable
	sequence  *domain.SubjectSequence
	ctx       context.Context
}

// Option defines a functional option for configuring the Monitor.
type Option func(*Monitor)

// WithSource sets where the automaton comes from. Sources that also
// describe error categories and bindings (ports.DescriptionSource)
// contribute those too.
func WithSource(s ports.AutomatonSource) Option {
	return func(m *Monitor) {
		m.source = s
	}
}

// WithAutomaton uses an automaton built in code, bypassing any source.
func WithAutomaton(a *domain.Automaton) Option {
	return func(m *Monitor) {
		m.automaton = a
	}
}

// WithSubject sets the capability metadata of the monitored type.
// Bindings from a description source are merged on top of it.
func WithSubject(s *capability.SubjectType) Option {
	return func(m *Monitor) {
		m.subject = s
	}
}

// WithRecorder sets the transition sink.
func WithRecorder(r ports.TransitionRecorder) Option {
	return func(m *Monitor) {
		m.recorder = r
	}
}

// WithTaxonomy sets the error categories, overriding the ones of the source.
func WithTaxonomy(t *domain.Taxonomy) Option {
	return func(m *Monitor) {
		m.taxonomy = t
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// WithHooks registers observability hooks.
func WithHooks(h domain.MonitorHooks) Option {
	return func(m *Monitor) {
		m.hooks = h
	}
}

// WithSuspended registers sibling subsystems that must be silenced while
// the monitor samples state.
func WithSuspended(s ...ports.Suspendable) Option {
	return func(m *Monitor) {
		m.suspended = append(m.suspended, s...)
	}
}

// WithSubjectSequence shares subject ids with other monitors writing to
// the same recorder.
func WithSubjectSequence(seq *domain.SubjectSequence) Option {
	return func(m *Monitor) {
		m.sequence = seq
	}
}

// WithContext sets the context used to load the automaton and passed to
// the recorder.
func WithContext(ctx context.Context) Option {
	return func(m *Monitor) {
		m.ctx = ctx
	}
}

// New loads the automaton, resolves the lookup tables and builds the
// monitor. Every error is a *domain.Failure of kind ErrConfiguration or
// a source error.
func New(opts ...Option) (*Monitor, error) {
	m := &Monitor{ctx: context.Background()}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.init(); err != nil {
		return nil, domain.NewFailure("construct", err)
	}
	return m, nil
}

func (m *Monitor) init() error {
	var bindings capability.Bindings

	if m.automaton == nil {
		if m.source == nil {
			return fmt.Errorf("%w: an automaton or an automaton source is required", domain.ErrConfiguration)
		}
		if ds, ok := m.source.(ports.DescriptionSource); ok {
			desc, err := ds.Describe(m.ctx)
			if err != nil {
				return fmt.Errorf("failed to load automaton description: %w", err)
			}
			m.automaton = desc.Automaton
			bindings = desc.Bindings
			if m.taxonomy == nil {
				m.taxonomy = desc.Taxonomy
			}
		} else {
			a, err := m.source.Load(m.ctx)
			if err != nil {
				return fmt.Errorf("failed to load automaton: %w", err)
			}
			m.automaton = a
		}
	}

	subject := m.subject
	if !bindings.IsZero() {
		subject = bindings.Apply(subject)
	}
	if subject == nil {
		return fmt.Errorf("%w: automaton %q has no subject bindings", domain.ErrConfiguration, m.automaton.Name())
	}

	tables, err := capability.Resolve(m.automaton, subject)
	if err != nil {
		return err
	}
	m.tables = tables

	if m.taxonomy == nil {
		m.taxonomy = domain.NewTaxonomy()
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	m.logger = m.logger.With("automaton", m.automaton.Name(), "subject", tables.Subject)

	if err := m.initSequence(); err != nil {
		return err
	}

	m.runtime = runtime.NewMonitor(m.automaton, tables,
		runtime.WithTaxonomy(m.taxonomy),
		runtime.WithRecorder(m.recorder),
		runtime.WithSuspended(m.suspended...),
		runtime.WithHooks(m.hooks),
		runtime.WithLogger(m.logger),
		runtime.WithSequence(m.sequence),
		runtime.WithContext(m.ctx),
	)
	return nil
}

// initSequence continues after the ids a readable recorder already holds,
// so a new monitor never appends to the trace of another object.
func (m *Monitor) initSequence() error {
	if m.sequence == nil {
		m.sequence = domain.NewSubjectSequence(0)
	}
	reader, ok := m.recorder.(ports.TraceReader)
	if !ok {
		return nil
	}
	subjects, err := reader.Subjects(m.ctx)
	if err != nil {
		return fmt.Errorf("failed to read recorded subjects: %w", err)
	}
	for _, s := range subjects {
		m.sequence.Skip(s.ID)
	}
	return nil
}

// Enter must be called before a classified operation runs.
// subject is nil for constructors. A subject never seen before that no
// state query classifies is taken to be in the initial state.
func (m *Monitor) Enter(owner, signature string, subject any) error {
	return m.runtime.Enter(owner, signature, subject)
}

// Exit must be called after the operation returned, with the error it
// returned if any.
func (m *Monitor) Exit(owner, signature string, subject any, thrown error) error {
	return m.runtime.Exit(owner, signature, subject, thrown)
}

// SetEnabled switches the hooks on or off.
func (m *Monitor) SetEnabled(enabled bool) { m.runtime.SetEnabled(enabled) }

// Enabled reports whether the hooks are active.
func (m *Monitor) Enabled() bool { return m.runtime.Enabled() }

// Suspend implements ports.Suspendable, so a monitor can silence another.
func (m *Monitor) Suspend() func() { return m.runtime.Suspend() }

// Reset prepares the monitor for an unrelated execution: it clears the
// call stack, the excluded subjects and the subject ids.
func (m *Monitor) Reset() { m.runtime.Reset() }

// IsInvalid reports whether subject was excluded from the trace.
func (m *Monitor) IsInvalid(subject any) bool { return m.runtime.IsInvalid(subject) }

// Depth returns the number of classified calls in progress.
func (m *Monitor) Depth() int { return m.runtime.Depth() }

// CurrentState samples the abstract state of subject.
func (m *Monitor) CurrentState(subject any) (domain.State, error) {
	return m.runtime.CurrentState(subject)
}

// Automaton returns the automaton the monitor validates against.
func (m *Monitor) Automaton() *domain.Automaton { return m.automaton }

// Taxonomy returns the error categories used by exception policies.
func (m *Monitor) Taxonomy() *domain.Taxonomy { return m.taxonomy }

// Recorder returns the configured transition sink, possibly nil.
func (m *Monitor) Recorder() ports.TransitionRecorder { return m.recorder }
