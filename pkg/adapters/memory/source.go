package memory

import (
	"context"

	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
)

// Source implements ports.DescriptionSource over values built in code.
type Source struct {
	desc ports.Description
}

// NewSource wraps an automaton. A nil taxonomy means an empty one.
func NewSource(automaton *domain.Automaton, taxonomy *domain.Taxonomy) *Source {
	if taxonomy == nil {
		taxonomy = domain.NewTaxonomy()
	}
	return &Source{desc: ports.Description{Automaton: automaton, Taxonomy: taxonomy}}
}

// NewFromStates builds the automaton and wraps it.
// This spares tests the error handling of domain.NewAutomaton.
func NewFromStates(initial domain.State, states []domain.State, actions []domain.Action) (*Source, error) {
	a, err := domain.NewAutomaton(string(initial), initial, states, actions)
	if err != nil {
		return nil, err
	}
	return NewSource(a, nil), nil
}

// Load implements ports.AutomatonSource.
func (s *Source) Load(ctx context.Context) (*domain.Automaton, error) {
	if s.desc.Automaton == nil {
		return nil, domain.ErrConfiguration
	}
	return s.desc.Automaton, nil
}

// Describe implements ports.DescriptionSource.
func (s *Source) Describe(ctx context.Context) (*ports.Description, error) {
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	d := s.desc
	return &d, nil
}
