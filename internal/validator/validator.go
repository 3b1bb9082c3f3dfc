// Package validator lints automaton descriptions before a monitor is built.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
)

// Report lists what Validate found. Errors make the description unusable
// by a monitor; warnings point at likely mistakes.
type Report struct {
	Errors   []string
	Warnings []string
}

// Err folds the errors into one error, or returns nil.
func (r Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Errors), strings.Join(r.Errors, "\n- "))
}

// Validate checks the declared transitions for unreachable states and
// unused actions, and the bindings against the automaton.
func Validate(desc *ports.Description) Report {
	var r Report
	a := desc.Automaton

	if transitions := a.Transitions(); len(transitions) > 0 {
		// Crawl the declared graph from the initial state.
		visited := map[string]bool{}
		queue := []string{string(a.Initial())}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			if visited[current] {
				continue
			}
			visited[current] = true
			for _, t := range transitions {
				if string(t.From) == current && !visited[string(t.To)] {
					queue = append(queue, string(t.To))
				}
			}
		}
		for _, s := range a.States() {
			if !visited[string(s)] {
				r.Warnings = append(r.Warnings, fmt.Sprintf("state '%s' is unreachable from '%s'", s, a.Initial()))
			}
		}
	}

	used := map[string]bool{}
	for _, t := range a.Transitions() {
		used[string(t.Action)] = true
	}

	b := desc.Bindings
	signatures := map[string]bool{}
	for _, op := range b.Operations {
		used[op.Action] = true
		if !a.HasAction(domain.Action(op.Action)) {
			r.Errors = append(r.Errors, fmt.Sprintf("operation '%s' is bound to unknown action '%s'", op.Signature, op.Action))
		}
		if signatures[op.Signature] {
			r.Errors = append(r.Errors, fmt.Sprintf("operation '%s' is bound twice", op.Signature))
		}
		signatures[op.Signature] = true
	}

	for state := range b.States {
		switch {
		case !a.HasState(domain.State(state)):
			r.Errors = append(r.Errors, fmt.Sprintf("query bound to unknown state '%s'", state))
		case domain.State(state) == a.Initial():
			r.Errors = append(r.Errors, fmt.Sprintf("initial state '%s' cannot have a query", state))
		}
	}

	if !b.IsZero() {
		for _, s := range a.States() {
			if s != a.Initial() && b.States[string(s)] == "" {
				r.Warnings = append(r.Warnings, fmt.Sprintf("state '%s' has no declared query; it must be attached in code", s))
			}
		}
	}

	if len(a.Transitions()) > 0 || len(b.Operations) > 0 {
		for _, act := range a.Actions() {
			if !used[string(act)] {
				r.Warnings = append(r.Warnings, fmt.Sprintf("action '%s' is never used", act))
			}
		}
	}

	return r
}
