package capability

import (
	"reflect"
	"strings"
)

// Predicate reports whether subject is in a state.
type Predicate func(subject any) (bool, error)

// Operation binds a concrete operation signature to an automaton action.
type Operation struct {
	// Signature identifies the operation in hook calls, e.g. "Read([]byte)".
	Signature string
	// Constructor marks operations that create the subject.
	Constructor bool
	// Action is the automaton action the operation implements.
	Action string
	// EnabledExceptions is a comma-separated whitelist of error categories.
	EnabledExceptions string
	// NotEnabledExceptions is a comma-separated blacklist of error categories.
	NotEnabledExceptions string
}

// Query binds an automaton state to a boolean query capability.
// Exactly one of Method and Func should be set; Func wins if both are.
type Query struct {
	State string
	// Method names a method of SubjectType.Type with signature
	// func() bool or func() (bool, error).
	Method string
	Func   Predicate
}

// SubjectType is the capability metadata of a monitored type.
type SubjectType struct {
	// Name is the owner type name passed to the hooks.
	Name string
	// Type is the Go type of subjects, required for method-name queries.
	Type reflect.Type
	// Super holds bindings inherited by this type. Bindings declared here
	// take precedence over the ones in Super.
	Super *SubjectType

	Operations []Operation
	Queries    []Query
}

// ParseCategories splits a comma-separated category list.
// Blank entries are dropped, so "" yields no categories.
func ParseCategories(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// chain returns the type followed by its supertypes, most derived first.
func (s *SubjectType) chain() []*SubjectType {
	var out []*SubjectType
	seen := make(map[*SubjectType]bool)
	for t := s; t != nil && !seen[t]; t = t.Super {
		seen[t] = true
		out = append(out, t)
	}
	return out
}
