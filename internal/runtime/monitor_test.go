package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/epa/internal/runtime"
	"github.com/aretw0/epa/pkg/capability"
	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/execution"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_OpenReadScenario(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	fx := newFixture(t, a, subject)
	f := &file{}

	require.NoError(t, fx.open(f))
	require.NoError(t, fx.read(f))
	require.NoError(t, fx.read(f))

	// The next read fails with a non-enabled error and the file is excluded.
	f.fail = domain.NewException("IllegalStateException", "stream reset")
	err := fx.read(f)
	assert.Equal(t, "IllegalStateException", newTaxonomy().CategoryOf(err))
	assert.True(t, fx.monitor.IsInvalid(f))

	// Nothing else is ever recorded for it.
	f.fail = nil
	require.NoError(t, fx.read(f))
	require.NoError(t, fx.close(f))

	want := []domain.Transition{
		{From: "Closed", Action: "open", To: "Open"},
		{From: "Open", Action: "read", To: "Open"},
		{From: "Open", Action: "read", To: "Open"},
	}
	if diff := cmp.Diff(want, fx.trace(t, 1)); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, fx.monitor.Depth())
}

func TestMonitor_ConstructorStartsAtInitial(t *testing.T) {
	a, subject := lifecycleAutomaton(t)
	fx := newFixture(t, a, subject)

	f, err := fx.construct(nil)
	require.NoError(t, err)
	require.NoError(t, fx.open(f))
	require.NoError(t, fx.close(f))

	want := []domain.Transition{
		{From: "Init", Action: "new", To: "Closed"},
		{From: "Closed", Action: "open", To: "Open"},
		{From: "Open", Action: "close", To: "Closed"},
	}
	if diff := cmp.Diff(want, fx.trace(t, 1)); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestMonitor_FailedConstructorRecordsNothing(t *testing.T) {
	a, subject := lifecycleAutomaton(t)
	fx := newFixture(t, a, subject)

	boom := domain.NewException("IOException", "disk full")
	_, err := fx.construct(boom)
	assert.ErrorIs(t, err, boom, "the constructor error is the caller's, not the monitor's")
	assert.Zero(t, fx.monitor.Depth(), "the constructor frame must be popped")
	assert.Zero(t, fx.recorder.Len())

	// The next construction is unaffected.
	_, err = fx.construct(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.recorder.Len())
}

func TestMonitor_EnabledErrorIsRecorded(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	fx := newFixture(t, a, subject)
	f := &file{}

	require.NoError(t, fx.open(f))
	f.eof = true
	err := fx.read(f)
	require.Error(t, err)

	assert.False(t, fx.monitor.IsInvalid(f))
	want := []domain.Transition{
		{From: "Closed", Action: "open", To: "Open"},
		{From: "Open", Action: "read", To: "Open"},
	}
	if diff := cmp.Diff(want, fx.trace(t, 1)); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestMonitor_ErrorWithoutPolicyInvalidates(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	fx := newFixture(t, a, subject)
	f := &file{}

	require.NoError(t, fx.open(f))
	err := fx.call(f, "Close()", func() error {
		return domain.NewException("IOException", "flush failed")
	})
	require.Error(t, err)
	assert.True(t, fx.monitor.IsInvalid(f))
	assert.Equal(t, 1, fx.recorder.Len())
}

func TestMonitor_NestedSubjects(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	fx := newFixture(t, a, subject)
	outer, inner := &file{}, &file{}

	err := fx.call(outer, "Open()", func() error {
		outer.open = true
		// The inner file is not open: its read is a violation.
		assert.Error(t, fx.read(inner))
		assert.Equal(t, 1, fx.monitor.Depth())
		return nil
	})
	require.NoError(t, err)

	assert.True(t, fx.monitor.IsInvalid(inner))
	assert.False(t, fx.monitor.IsInvalid(outer))

	// Ids are assigned on first sight: the inner file was seen first.
	want := []domain.Transition{{From: "Closed", Action: "open", To: "Open"}}
	if diff := cmp.Diff(want, fx.trace(t, 2)); diff != "" {
		t.Errorf("outer trace mismatch (-want +got):\n%s", diff)
	}
	_, err = fx.recorder.Transitions(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrSubjectNotFound)
}

func TestMonitor_UnclassifiedCallsAreIgnored(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	fx := newFixture(t, a, subject)
	f := &file{}

	require.NoError(t, fx.call(f, "Size()", func() error { return nil }))
	require.Error(t, fx.call(f, "Size()", func() error { return errors.New("boom") }))
	assert.Zero(t, fx.monitor.Depth())
	assert.Zero(t, fx.recorder.Len())
	assert.False(t, fx.monitor.IsInvalid(f))
}

func TestMonitor_MultipleStatesAreMalformed(t *testing.T) {
	a, subject := lifecycleAutomaton(t)
	fx := newFixture(t, a, subject)
	f := &file{open: true, closed: true}

	err := fx.open(f)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedTrace)
	assert.ErrorIs(t, err, domain.ErrMonitorFailure)
	assert.Contains(t, err.Error(), "Closed and Open simultaneously")

	var failure *domain.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "enter", failure.Op)
	assert.Equal(t, domain.ErrMalformedTrace, failure.Kind())
	assert.True(t, fx.monitor.Enabled(), "the guard must restore the monitor")
}

func TestMonitor_MethodWithoutPreviousState(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	fx := newFixture(t, a, subject)
	f := &file{}

	require.NoError(t, fx.open(f))
	// Closed cannot be observed, so close records an unclassified target.
	require.NoError(t, fx.close(f))
	assert.Equal(t, domain.Transition{From: "Open", Action: "close"}, fx.trace(t, 1)[1])

	err := fx.open(f)
	assert.ErrorIs(t, err, domain.ErrMalformedTrace)
	assert.Zero(t, fx.monitor.Depth())
}

func TestMonitor_StackDiscipline(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	fx := newFixture(t, a, subject)
	f := &file{}

	err := fx.monitor.Exit("File", "Open()", f, nil)
	assert.ErrorIs(t, err, domain.ErrInternalConsistency)

	require.NoError(t, fx.monitor.Enter("File", "Open()", f))
	err = fx.monitor.Exit("File", "Read()", f, nil)
	assert.ErrorIs(t, err, domain.ErrInternalConsistency)
	assert.ErrorIs(t, err, domain.ErrMonitorFailure)
}

func TestMonitor_SubjectWithoutIdentity(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	fx := newFixture(t, a, subject)

	err := fx.monitor.Enter("File", "Open()", file{})
	assert.ErrorIs(t, err, domain.ErrInternalConsistency)
	assert.False(t, fx.monitor.IsInvalid(file{}))
}

func TestMonitor_GuardSuspendsSiblings(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	fx := newFixture(t, a, subject)
	f := &file{tracer: fx.tracer, loops: fx.loops}

	require.NoError(t, fx.open(f))
	require.NoError(t, fx.read(f))

	// The IsOpen queries run by the monitor must not show up.
	want := []execution.Call{
		{Owner: "File", Signature: "Open()"},
		{Owner: "File", Signature: "Read()"},
	}
	if diff := cmp.Diff(want, fx.tracer.Calls()); diff != "" {
		t.Errorf("traced calls mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, fx.loops.Count(0))
	assert.True(t, fx.tracer.Enabled())
	assert.True(t, fx.tracer.TraceCallsEnabled())
	assert.True(t, fx.loops.Active())
}

func TestMonitor_GuardRestoresAfterPredicatePanic(t *testing.T) {
	a, _ := closedOpenAutomaton(t)
	subject := &capability.SubjectType{
		Name:       "File",
		Operations: fileOperations,
		Queries: []capability.Query{{State: "Open", Func: func(any) (bool, error) {
			panic("query blew up")
		}}},
	}
	fx := newFixture(t, a, subject)
	fx.tracer.SetTraceCalls(false)

	err := fx.open(&file{})
	assert.ErrorIs(t, err, domain.ErrPredicate)
	assert.Contains(t, err.Error(), "query blew up")

	assert.True(t, fx.monitor.Enabled())
	assert.True(t, fx.tracer.Enabled())
	assert.False(t, fx.tracer.TraceCallsEnabled(), "restored to its previous value, not forced on")
	assert.True(t, fx.loops.Active())
}

func TestMonitor_PredicateError(t *testing.T) {
	a, _ := closedOpenAutomaton(t)
	broken := errors.New("handle closed")
	subject := &capability.SubjectType{
		Name:       "File",
		Operations: fileOperations,
		Queries: []capability.Query{{State: "Open", Func: func(any) (bool, error) {
			return false, broken
		}}},
	}
	fx := newFixture(t, a, subject)

	err := fx.open(&file{})
	assert.ErrorIs(t, err, domain.ErrPredicate)
	assert.ErrorIs(t, err, broken)
}

func TestMonitor_InstrumentedPredicateDoesNotRecurse(t *testing.T) {
	a, _ := closedOpenAutomaton(t)
	var fx *fixture
	var nestedDepth []int
	subject := &capability.SubjectType{
		Name:       "File",
		Operations: fileOperations,
		Queries: []capability.Query{{State: "Open", Func: func(s any) (bool, error) {
			f := s.(*file)
			// The query itself goes through classified, instrumented code.
			err := fx.call(f, "Read()", func() error { return nil })
			nestedDepth = append(nestedDepth, fx.monitor.Depth())
			return f.open, err
		}}},
	}
	fx = newFixture(t, a, subject)
	f := &file{}

	require.NoError(t, fx.open(f))
	require.NotEmpty(t, nestedDepth)
	for _, d := range nestedDepth {
		assert.LessOrEqual(t, d, 1)
	}
	assert.Equal(t, []domain.Transition{{From: "Closed", Action: "open", To: "Open"}}, fx.trace(t, 1))
}

func TestMonitor_Disabled(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	fx := newFixture(t, a, subject)
	f := &file{}

	fx.monitor.SetEnabled(false)
	require.NoError(t, fx.open(f))
	require.NoError(t, fx.monitor.Exit("File", "Open()", f, nil), "no stack check while disabled")
	assert.Zero(t, fx.recorder.Len())

	fx.monitor.SetEnabled(true)
	require.NoError(t, fx.read(f))
	assert.Equal(t, 1, fx.recorder.Len())
}

func TestMonitor_Reset(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	fx := newFixture(t, a, subject)
	f := &file{}

	require.Error(t, fx.read(f))
	require.True(t, fx.monitor.IsInvalid(f))
	require.NoError(t, fx.monitor.Enter("File", "Open()", f))
	require.Equal(t, 1, fx.monitor.Depth())

	fx.monitor.Reset()
	assert.False(t, fx.monitor.IsInvalid(f))
	assert.Zero(t, fx.monitor.Depth())

	g := &file{}
	require.NoError(t, fx.open(g))
	subjects, err := fx.recorder.Subjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Subject{{ID: 2, Type: "File"}}, subjects, "ids are not reused after Reset")
}

func TestMonitor_SharedSequence(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	seq := domain.NewSubjectSequence(0)
	first := newFixture(t, a, subject, runtime.WithSequence(seq))
	second := newFixture(t, a, subject, runtime.WithSequence(seq))

	require.NoError(t, first.open(&file{}))
	require.NoError(t, second.open(&file{}))
	require.NoError(t, first.open(&file{}))

	subjects, err := second.recorder.Subjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Subject{{ID: 2, Type: "File"}}, subjects)
	subjects, err = first.recorder.Subjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Subject{{ID: 1, Type: "File"}, {ID: 3, Type: "File"}}, subjects)
}

type failingRecorder struct{ err error }

func (r failingRecorder) Record(context.Context, domain.Subject, domain.Transition) error {
	return r.err
}

func TestMonitor_RecorderErrorIsFatal(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	unavailable := errors.New("trace store unavailable")
	fx := newFixture(t, a, subject, runtime.WithRecorder(failingRecorder{err: unavailable}))

	err := fx.open(&file{})
	assert.ErrorIs(t, err, unavailable)
	assert.ErrorIs(t, err, domain.ErrMonitorFailure)

	var failure *domain.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "record", failure.Op)
	assert.Nil(t, failure.Kind())
}

func TestMonitor_Hooks(t *testing.T) {
	a, subject := closedOpenAutomaton(t)
	var (
		transitions []domain.Transition
		invalidated []string
		failures    []error
	)
	hooks := domain.MonitorHooks{
		OnTransition:  func(_ domain.Subject, tr domain.Transition) { transitions = append(transitions, tr) },
		OnInvalidated: func(_ domain.Subject, sig string, _ error) { invalidated = append(invalidated, sig) },
		OnFailure:     func(err error) { failures = append(failures, err) },
	}
	fx := newFixture(t, a, subject, runtime.WithHooks(hooks))
	f, g := &file{}, &file{}

	require.NoError(t, fx.open(f))
	require.Error(t, fx.read(g))
	require.Error(t, fx.monitor.Exit("File", "Close()", f, nil))

	assert.Len(t, transitions, 1)
	assert.Equal(t, []string{"Read()"}, invalidated)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], domain.ErrInternalConsistency)
}

func TestMonitor_CurrentState(t *testing.T) {
	a, subject := lifecycleAutomaton(t)
	fx := newFixture(t, a, subject)
	f := fx.newFile()

	state, err := fx.monitor.CurrentState(f)
	require.NoError(t, err)
	assert.Equal(t, domain.State("Closed"), state)
	assert.Empty(t, fx.tracer.Calls(), "sampling runs under the guard")

	f.closed = false
	state, err = fx.monitor.CurrentState(f)
	require.NoError(t, err)
	assert.Equal(t, domain.NoState, state)
}
