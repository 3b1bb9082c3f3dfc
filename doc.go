/*
Package epa is a runtime protocol-conformance monitor.

While a program under test runs, the monitor observes calls into a subject
object, samples the object's abstract state after each call and records
(state, action, state) transitions of an Enabledness-Preserving
Abstraction (EPA): an automaton whose states group the object's concrete
states by the set of operations they enable.

# Concept

A subject type is described once, as capability metadata: which concrete
operations implement which automaton actions, and which boolean queries
tell whether the object is in a given state. From this metadata the
monitor builds two lookup tables and then only needs two hooks:

  - Enter, called before a classified operation runs.
  - Exit, called after it returned, with the error it returned if any.

The monitor silences itself and every registered sibling subsystem
(tracers, loop counters) while it evaluates state queries, since those run
through instrumented code too.

An error returned by an operation is either a legitimate outcome of the
action (the transition is recorded) or a protocol violation, after which
the object is excluded from the trace for good. The decision follows the
operation's whitelist and blacklist of error categories.

# Usage

	mon, err := epa.New(
		epa.WithSource(file.NewSource("conn.yaml")),
		epa.WithSubject(&capability.SubjectType{Name: "Conn", Type: reflect.TypeOf(&Conn{})}),
		epa.WithRecorder(memory.NewRecorder()),
	)
	if err != nil {
		log.Fatal(err)
	}

	func (c *Conn) Send(msg string) error {
		return mon.Call("Conn", "Send(string)", c, func() error {
			return c.send(msg)
		})
	}

Call sites that cannot be handed a *Monitor use the process-wide instance
configured with Setup and reached through Enter, Exit and Call.

The monitor is not safe for concurrent use: hooks must be called from one
logical thread, with classified calls strictly nested.
*/
package epa
