/*
Package capability resolves a subject type's declarative metadata against an
automaton.

Go has no annotations, so a subject type describes its protocol bindings
with a SubjectType value: which operations implement which actions (and
which error categories keep such an action enabled), and which boolean
queries tell whether an object is in a given state. Resolve turns that
metadata into the two read-only lookup tables the monitor uses on every
call. All configuration mistakes surface there, once.

	file := &capability.SubjectType{
		Name: "File",
		Type: reflect.TypeOf(&File{}),
		Operations: []capability.Operation{
			{Signature: "NewFile(string)", Constructor: true, Action: "new"},
			{Signature: "Read()", Action: "read", EnabledExceptions: "Exception", NotEnabledExceptions: "IllegalStateException"},
		},
		Queries: []capability.Query{
			{State: "Open", Method: "IsOpen"},
		},
	}
*/
package capability
