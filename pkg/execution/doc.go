/*
Package execution provides the execution-time subsystems that share call
sites with the EPA monitor: an execution tracer recording which
instrumented operations were entered, and a loop counter bounding the
iterations of instrumented loops.

Both implement ports.Suspendable so the monitor can silence them while it
evaluates state predicates, which run through the same instrumented code.
None of the types here are safe for concurrent use.
*/
package execution
