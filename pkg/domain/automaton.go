package domain

import (
	"fmt"
)

// Automaton is the immutable description of a subject type's protocol.
//
// Legal transitions are determined dynamically by observation. Declared
// transitions, when present, only document the expected protocol and are
// used for visualisation; they never cause an observed transition to be
// rejected.
type Automaton struct {
	name        string
	initial     State
	states      []State
	actions     []Action
	transitions []Transition

	stateSet  map[State]struct{}
	actionSet map[Action]struct{}
	declared  map[Transition]struct{}
}

// NewAutomaton validates and builds an Automaton.
// The initial state must be one of states. States and actions must be unique
// and non-empty.
func NewAutomaton(name string, initial State, states []State, actions []Action, transitions ...Transition) (*Automaton, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("%w: automaton %q declares no states", ErrConfiguration, name)
	}

	a := &Automaton{
		name:      name,
		initial:   initial,
		states:    append([]State(nil), states...),
		actions:   append([]Action(nil), actions...),
		stateSet:  make(map[State]struct{}, len(states)),
		actionSet: make(map[Action]struct{}, len(actions)),
		declared:  make(map[Transition]struct{}, len(transitions)),
	}

	for _, s := range states {
		if s == NoState {
			return nil, fmt.Errorf("%w: automaton %q has an empty state name", ErrConfiguration, name)
		}
		if _, dup := a.stateSet[s]; dup {
			return nil, fmt.Errorf("%w: automaton %q declares state %q twice", ErrConfiguration, name, s)
		}
		a.stateSet[s] = struct{}{}
	}
	for _, act := range actions {
		if act == "" {
			return nil, fmt.Errorf("%w: automaton %q has an empty action name", ErrConfiguration, name)
		}
		if _, dup := a.actionSet[act]; dup {
			return nil, fmt.Errorf("%w: automaton %q declares action %q twice", ErrConfiguration, name, act)
		}
		a.actionSet[act] = struct{}{}
	}
	if !a.HasState(initial) {
		return nil, fmt.Errorf("%w: initial state %q of automaton %q is not a declared state", ErrConfiguration, initial, name)
	}

	for _, t := range transitions {
		if !a.HasState(t.From) || !a.HasState(t.To) {
			return nil, fmt.Errorf("%w: transition %s references an unknown state", ErrConfiguration, t)
		}
		if !a.HasAction(t.Action) {
			return nil, fmt.Errorf("%w: transition %s references an unknown action", ErrConfiguration, t)
		}
		if _, dup := a.declared[t]; dup {
			continue
		}
		a.declared[t] = struct{}{}
		a.transitions = append(a.transitions, t)
	}

	return a, nil
}

// Name returns the automaton's descriptive name.
func (a *Automaton) Name() string { return a.name }

// Initial returns the distinguished initial state.
func (a *Automaton) Initial() State { return a.initial }

// States returns all states in declaration order, the initial one included.
func (a *Automaton) States() []State { return append([]State(nil), a.states...) }

// Actions returns all actions in declaration order.
func (a *Automaton) Actions() []Action { return append([]Action(nil), a.actions...) }

// Transitions returns the declared transitions, if any.
func (a *Automaton) Transitions() []Transition { return append([]Transition(nil), a.transitions...) }

// HasState reports whether s is a declared state.
func (a *Automaton) HasState(s State) bool {
	_, ok := a.stateSet[s]
	return ok
}

// HasAction reports whether act is a declared action.
func (a *Automaton) HasAction(act Action) bool {
	_, ok := a.actionSet[act]
	return ok
}

// Declares reports whether t is one of the declared transitions.
func (a *Automaton) Declares(t Transition) bool {
	_, ok := a.declared[t]
	return ok
}
