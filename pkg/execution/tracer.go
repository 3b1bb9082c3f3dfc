package execution

// Call is one traced entry into an instrumented operation.
type Call struct {
	Owner     string
	Signature string
}

// Tracer records calls into instrumented operations.
// Recording happens only while both the tracer and call tracing are enabled.
type Tracer struct {
	enabled    bool
	traceCalls bool
	calls      []Call
}

// NewTracer returns an enabled tracer with call tracing on.
func NewTracer() *Tracer {
	return &Tracer{enabled: true, traceCalls: true}
}

// Enabled reports whether the tracer is on.
func (t *Tracer) Enabled() bool { return t.enabled }

// SetEnabled switches the tracer on or off.
func (t *Tracer) SetEnabled(enabled bool) { t.enabled = enabled }

// TraceCallsEnabled reports whether calls are traced.
func (t *Tracer) TraceCallsEnabled() bool { return t.traceCalls }

// SetTraceCalls switches call tracing on or off.
func (t *Tracer) SetTraceCalls(enabled bool) { t.traceCalls = enabled }

// EnteredMethod is called by instrumented code on entry.
func (t *Tracer) EnteredMethod(owner, signature string) {
	if !t.enabled || !t.traceCalls {
		return
	}
	t.calls = append(t.calls, Call{Owner: owner, Signature: signature})
}

// Calls returns the traced calls in order.
func (t *Tracer) Calls() []Call {
	return append([]Call(nil), t.calls...)
}

// Clear drops every traced call.
func (t *Tracer) Clear() { t.calls = nil }

// Suspend implements ports.Suspendable. Both switches are saved and restored.
func (t *Tracer) Suspend() func() {
	wasEnabled, wasTracingCalls := t.enabled, t.traceCalls
	t.enabled, t.traceCalls = false, false
	return func() {
		t.enabled, t.traceCalls = wasEnabled, wasTracingCalls
	}
}
