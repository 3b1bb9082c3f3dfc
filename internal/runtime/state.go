package runtime

import (
	"fmt"

	"github.com/aretw0/epa/pkg/capability"
	"github.com/aretw0/epa/pkg/domain"
)

// currentState evaluates every state predicate against subject.
// No match yields domain.NoState. More than one match means the object is
// in two mutually exclusive states, which the trace cannot express.
func (m *Monitor) currentState(subject any) (domain.State, error) {
	current := domain.NoState
	for _, binding := range m.states {
		holds, err := evaluate(binding, subject)
		if err != nil {
			return domain.NoState, err
		}
		if !holds {
			continue
		}
		if current != domain.NoState {
			return domain.NoState, fmt.Errorf("%w: object found in multiple states: %s and %s simultaneously",
				domain.ErrMalformedTrace, current, binding.State)
		}
		current = binding.State
	}
	return current, nil
}

// evaluate runs one predicate. Errors and panics are fatal, never swallowed.
func evaluate(binding capability.StateBinding, subject any) (holds bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			holds, err = false, fmt.Errorf("%w: %s for state %s panicked: %v", domain.ErrPredicate, binding.Source, binding.State, r)
		}
	}()

	holds, err = binding.Predicate(subject)
	if err != nil {
		return false, fmt.Errorf("%w: %s for state %s: %w", domain.ErrPredicate, binding.Source, binding.State, err)
	}
	return holds, nil
}
