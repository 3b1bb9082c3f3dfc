package compiler

import (
	"fmt"
	"sort"

	"github.com/aretw0/epa/internal/dto"
	"github.com/aretw0/epa/pkg/capability"
	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML (or JSON) automaton description and compiles it.
func Parse(data []byte) (*ports.Description, error) {
	var desc dto.AutomatonDescription
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse automaton description: %v", domain.ErrConfiguration, err)
	}
	return Compile(desc)
}

// Compile turns a serialized description into domain objects.
func Compile(desc dto.AutomatonDescription) (*ports.Description, error) {
	states := make([]domain.State, 0, len(desc.States))
	for _, s := range desc.States {
		states = append(states, domain.State(s))
	}
	actions := make([]domain.Action, 0, len(desc.Actions))
	for _, a := range desc.Actions {
		actions = append(actions, domain.Action(a))
	}
	transitions := make([]domain.Transition, 0, len(desc.Transitions))
	for _, t := range desc.Transitions {
		transitions = append(transitions, domain.Transition{
			From:   domain.State(t.From),
			Action: domain.Action(t.Action),
			To:     domain.State(t.To),
		})
	}

	automaton, err := domain.NewAutomaton(desc.Name, domain.State(desc.Initial), states, actions, transitions...)
	if err != nil {
		return nil, err
	}

	taxonomy, err := compileTaxonomy(desc.Errors)
	if err != nil {
		return nil, err
	}

	var bindings capability.Bindings
	if len(desc.Bindings) > 0 {
		if bindings, err = capability.Decode(desc.Bindings); err != nil {
			return nil, err
		}
	}

	return &ports.Description{Automaton: automaton, Taxonomy: taxonomy, Bindings: bindings}, nil
}

// compileTaxonomy declares categories in name order so that errors are
// reported deterministically.
func compileTaxonomy(parents map[string]string) (*domain.Taxonomy, error) {
	t := domain.NewTaxonomy()
	names := make([]string, 0, len(parents))
	for name := range parents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := t.Declare(name, parents[name]); err != nil {
			return nil, err
		}
	}
	return t, nil
}
