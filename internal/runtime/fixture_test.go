package runtime_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/aretw0/epa/internal/runtime"
	"github.com/aretw0/epa/pkg/adapters/memory"
	"github.com/aretw0/epa/pkg/capability"
	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/execution"
	"github.com/stretchr/testify/require"
)

// file is a hand-instrumented subject. Its query methods run through the
// same tracer and loop counter as its operations, like instrumented code.
type file struct {
	open   bool
	closed bool
	eof    bool
	// fail, when set, is returned by the next reads.
	fail error

	tracer *execution.Tracer
	loops  *execution.LoopCounter
}

func (f *file) IsOpen() bool {
	f.touch("IsOpen()")
	return f.open
}

func (f *file) IsClosed() bool {
	f.touch("IsClosed()")
	return f.closed
}

func (f *file) touch(signature string) {
	if f.tracer != nil {
		f.tracer.EnteredMethod("File", signature)
	}
	if f.loops != nil {
		_ = f.loops.Tick(0)
	}
}

func newTaxonomy() *domain.Taxonomy {
	return domain.NewTaxonomy().
		MustDeclare("Exception", "").
		MustDeclare("IOException", "Exception").
		MustDeclare("EOFException", "IOException").
		MustDeclare("RuntimeException", "Exception").
		MustDeclare("IllegalStateException", "RuntimeException")
}

// fileOperations are the classified methods shared by both fixtures.
var fileOperations = []capability.Operation{
	{Signature: "Open()", Action: "open"},
	{Signature: "Read()", Action: "read", EnabledExceptions: "Exception", NotEnabledExceptions: "IllegalStateException"},
	{Signature: "Close()", Action: "close"},
}

// closedOpenAutomaton has Closed as initial state, which no query can
// observe, and Open.
func closedOpenAutomaton(t *testing.T) (*domain.Automaton, *capability.SubjectType) {
	t.Helper()
	a, err := domain.NewAutomaton("File", "Closed",
		[]domain.State{"Closed", "Open"},
		[]domain.Action{"open", "read", "close"},
	)
	require.NoError(t, err)

	subject := &capability.SubjectType{
		Name:       "File",
		Type:       reflect.TypeOf(&file{}),
		Operations: fileOperations,
		Queries:    []capability.Query{{State: "Open", Method: "IsOpen"}},
	}
	return a, subject
}

// lifecycleAutomaton adds a constructor and a queryable Closed state.
func lifecycleAutomaton(t *testing.T) (*domain.Automaton, *capability.SubjectType) {
	t.Helper()
	a, err := domain.NewAutomaton("File", "Init",
		[]domain.State{"Init", "Closed", "Open"},
		[]domain.Action{"new", "open", "read", "close"},
	)
	require.NoError(t, err)

	ops := append([]capability.Operation{{Signature: "File()", Constructor: true, Action: "new"}}, fileOperations...)
	subject := &capability.SubjectType{
		Name:       "File",
		Type:       reflect.TypeOf(&file{}),
		Operations: ops,
		Queries: []capability.Query{
			{State: "Closed", Method: "IsClosed"},
			{State: "Open", Method: "IsOpen"},
		},
	}
	return a, subject
}

type fixture struct {
	monitor  *runtime.Monitor
	recorder *memory.Recorder
	tracer   *execution.Tracer
	loops    *execution.LoopCounter
}

func newFixture(t *testing.T, a *domain.Automaton, subject *capability.SubjectType, opts ...runtime.MonitorOption) *fixture {
	t.Helper()
	tables, err := capability.Resolve(a, subject)
	require.NoError(t, err)

	fx := &fixture{
		recorder: memory.NewRecorder(),
		tracer:   execution.NewTracer(),
		loops:    execution.NewLoopCounter(0),
	}
	base := []runtime.MonitorOption{
		runtime.WithTaxonomy(newTaxonomy()),
		runtime.WithRecorder(fx.recorder),
		runtime.WithSuspended(fx.tracer, fx.loops),
	}
	fx.monitor = runtime.NewMonitor(a, tables, append(base, opts...)...)
	return fx
}

func (fx *fixture) newFile() *file {
	return &file{closed: true, tracer: fx.tracer, loops: fx.loops}
}

// call runs body between the hooks, the way instrumented code does.
func (fx *fixture) call(f any, signature string, body func() error) error {
	if err := fx.monitor.Enter("File", signature, f); err != nil {
		return err
	}
	thrown := body()
	if err := fx.monitor.Exit("File", signature, f, thrown); err != nil {
		return err
	}
	return thrown
}

func (fx *fixture) construct(fail error) (*file, error) {
	if err := fx.monitor.Enter("File", "File()", nil); err != nil {
		return nil, err
	}
	fx.tracer.EnteredMethod("File", "File()")
	var f *file
	if fail == nil {
		f = fx.newFile()
	}
	if err := fx.monitor.Exit("File", "File()", f, fail); err != nil {
		return nil, err
	}
	return f, fail
}

func (fx *fixture) open(f *file) error {
	return fx.call(f, "Open()", func() error {
		f.touch("Open()")
		f.open, f.closed = true, false
		return nil
	})
}

func (fx *fixture) read(f *file) error {
	return fx.call(f, "Read()", func() error {
		f.touch("Read()")
		switch {
		case f.fail != nil:
			return f.fail
		case !f.open:
			return domain.NewException("IllegalStateException", "file is not open")
		case f.eof:
			return domain.NewException("EOFException", "end of file")
		}
		return nil
	})
}

func (fx *fixture) close(f *file) error {
	return fx.call(f, "Close()", func() error {
		f.touch("Close()")
		f.open, f.closed = false, true
		return nil
	})
}

func (fx *fixture) trace(t *testing.T, id domain.SubjectID) []domain.Transition {
	t.Helper()
	got, err := fx.recorder.Transitions(context.Background(), id)
	require.NoError(t, err)
	return got
}
