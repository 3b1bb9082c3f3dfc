package dsl

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/aretw0/epa"
	"github.com/aretw0/epa/pkg/adapters/memory"
	"github.com/aretw0/epa/pkg/capability"
	"github.com/aretw0/epa/pkg/domain"
)

// Builder manages the protocol construction.
type Builder struct {
	name     string
	goType   reflect.Type
	initial  string
	states   []*StateBuilder
	byName   map[string]*StateBuilder
	actions  []string
	seen     map[string]bool
	ops      []*OperationBuilder
	errors   [][2]string
	problems []error
}

// New creates a builder for the subject type name.
func New(name string) *Builder {
	return &Builder{
		name:   name,
		byName: make(map[string]*StateBuilder),
		seen:   make(map[string]bool),
	}
}

// Subject records the Go type of sample, needed by Method queries.
func (b *Builder) Subject(sample any) *Builder {
	b.goType = reflect.TypeOf(sample)
	return b
}

// State adds a state, or returns the existing builder for it.
// The first state added is the initial one unless Initial is called on
// another.
func (b *Builder) State(name string) *StateBuilder {
	if sb, ok := b.byName[name]; ok {
		return sb
	}
	sb := &StateBuilder{name: name, builder: b}
	b.byName[name] = sb
	b.states = append(b.states, sb)
	if b.initial == "" {
		b.initial = name
	}
	return sb
}

// Action declares actions explicitly. Actions referenced by transitions or
// operations are declared implicitly in order of first use.
func (b *Builder) Action(names ...string) *Builder {
	for _, n := range names {
		b.addAction(n)
	}
	return b
}

func (b *Builder) addAction(name string) {
	if !b.seen[name] {
		b.seen[name] = true
		b.actions = append(b.actions, name)
	}
}

// Error declares an error category under parent ("" for the root).
func (b *Builder) Error(category, parent string) *Builder {
	b.errors = append(b.errors, [2]string{category, parent})
	return b
}

// Operation binds a method signature to an action.
func (b *Builder) Operation(signature, action string) *OperationBuilder {
	b.addAction(action)
	ob := &OperationBuilder{op: capability.Operation{Signature: signature, Action: action}}
	b.ops = append(b.ops, ob)
	return ob
}

// Constructor binds a constructor signature to an action.
func (b *Builder) Constructor(signature, action string) *OperationBuilder {
	ob := b.Operation(signature, action)
	ob.op.Constructor = true
	return ob
}

// Protocol is the result of Build.
type Protocol struct {
	Source  *memory.Source
	Subject *capability.SubjectType
}

// Options returns the monitor options wiring the protocol.
func (p *Protocol) Options() []epa.Option {
	return []epa.Option{epa.WithSource(p.Source), epa.WithSubject(p.Subject)}
}

// Build validates the declarations and compiles them.
func (b *Builder) Build() (*Protocol, error) {
	if len(b.problems) > 0 {
		return nil, errors.Join(b.problems...)
	}

	states := make([]domain.State, 0, len(b.states))
	var transitions []domain.Transition
	subject := &capability.SubjectType{Name: b.name, Type: b.goType}

	for _, sb := range b.states {
		states = append(states, domain.State(sb.name))
		for _, e := range sb.edges {
			transitions = append(transitions, domain.Transition{From: domain.State(sb.name), Action: domain.Action(e[0]), To: domain.State(e[1])})
		}
		if sb.query != nil {
			subject.Queries = append(subject.Queries, *sb.query)
		}
	}

	actions := make([]domain.Action, 0, len(b.actions))
	for _, a := range b.actions {
		actions = append(actions, domain.Action(a))
	}

	automaton, err := domain.NewAutomaton(b.name, domain.State(b.initial), states, actions, transitions...)
	if err != nil {
		return nil, fmt.Errorf("failed to build automaton: %w", err)
	}

	taxonomy := domain.NewTaxonomy()
	for _, e := range b.errors {
		if err := taxonomy.Declare(e[0], e[1]); err != nil {
			return nil, err
		}
	}

	for _, ob := range b.ops {
		subject.Operations = append(subject.Operations, ob.op)
	}

	return &Protocol{Source: memory.NewSource(automaton, taxonomy), Subject: subject}, nil
}
