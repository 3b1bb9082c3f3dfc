/*
Package dsl provides a Go DSL for declaring monitored protocols in code.

It builds the automaton, the error taxonomy and the subject bindings with a
fluent builder instead of a YAML description, which keeps predicates as
plain Go functions and suits unit tests.

Example usage:

	b := dsl.New("File")

	b.State("Closed").Initial().On("open", "Open")
	b.State("Open").
		Query(func(s any) (bool, error) { return s.(*File).open, nil }).
		On("read", "Open").
		On("close", "Closed")

	b.Error("IOException", "")
	b.Operation("Open()", "open")
	b.Operation("Read()", "read").Enabled("IOException")
	b.Operation("Close()", "close")

	protocol, err := b.Build()
	if err != nil {
		return err
	}
	monitor, err := epa.New(protocol.Options()...)
*/
package dsl
