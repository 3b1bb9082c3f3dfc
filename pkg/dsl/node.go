package dsl

import (
	"fmt"
	"strings"

	"github.com/aretw0/epa/pkg/capability"
)

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	name    string
	builder *Builder
	query   *capability.Query
	edges   [][2]string
}

// Initial marks the state as the automaton's initial state.
func (s *StateBuilder) Initial() *StateBuilder {
	s.builder.initial = s.name
	return s
}

// Query attaches a Go predicate deciding whether a subject is in the state.
func (s *StateBuilder) Query(p capability.Predicate) *StateBuilder {
	s.setQuery(capability.Query{State: s.name, Func: p})
	return s
}

// Method attaches a query method of the subject type, resolved by
// reflection. It requires Builder.Subject.
func (s *StateBuilder) Method(name string) *StateBuilder {
	s.setQuery(capability.Query{State: s.name, Method: name})
	return s
}

func (s *StateBuilder) setQuery(q capability.Query) {
	if s.query != nil {
		s.builder.problems = append(s.builder.problems, fmt.Errorf("state %q has two queries", s.name))
		return
	}
	s.query = &q
}

// On declares the transition (state, action, target), adding target as a
// state if needed.
func (s *StateBuilder) On(action, target string) *StateBuilder {
	s.builder.addAction(action)
	s.builder.State(target)
	s.edges = append(s.edges, [2]string{action, target})
	return s
}

// OperationBuilder configures an operation's exception policy.
type OperationBuilder struct {
	op capability.Operation
}

// Enabled adds categories to the whitelist.
func (o *OperationBuilder) Enabled(categories ...string) *OperationBuilder {
	o.op.EnabledExceptions = join(o.op.EnabledExceptions, categories)
	return o
}

// NotEnabled adds categories to the blacklist.
func (o *OperationBuilder) NotEnabled(categories ...string) *OperationBuilder {
	o.op.NotEnabledExceptions = join(o.op.NotEnabledExceptions, categories)
	return o
}

func join(list string, more []string) string {
	parts := capability.ParseCategories(list)
	parts = append(parts, more...)
	return strings.Join(parts, ",")
}
