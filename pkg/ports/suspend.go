package ports

// Suspendable is a subsystem that the monitor switches off while it
// evaluates state predicates, since those run through instrumented code.
type Suspendable interface {
	// Suspend disables the subsystem and returns a function restoring the
	// state it had before the call.
	Suspend() (resume func())
}
