package ports

import (
	"context"

	"github.com/aretw0/epa/pkg/capability"
	"github.com/aretw0/epa/pkg/domain"
)

// AutomatonSource defines how the monitor obtains its automaton.
// Load is called once per monitor construction; an error is fatal there.
type AutomatonSource interface {
	Load(ctx context.Context) (*domain.Automaton, error)
}

// AutomatonSourceFunc adapts a function to AutomatonSource.
type AutomatonSourceFunc func(ctx context.Context) (*domain.Automaton, error)

// Load implements AutomatonSource.
func (f AutomatonSourceFunc) Load(ctx context.Context) (*domain.Automaton, error) {
	return f(ctx)
}

// Description is everything a declarative source can say about a monitored
// subject: the automaton, the error categories used by exception policies
// and the subject bindings.
type Description struct {
	Automaton *domain.Automaton
	Taxonomy  *domain.Taxonomy
	Bindings  capability.Bindings
}

// DescriptionSource is an AutomatonSource that also describes error
// categories and subject bindings, e.g. a YAML file.
type DescriptionSource interface {
	AutomatonSource
	Describe(ctx context.Context) (*Description, error)
}
