package file

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/epa/internal/compiler"
	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
)

// Source implements ports.DescriptionSource over a YAML or JSON file.
// The file is read on every call, so edits are picked up by the next
// monitor built from it.
type Source struct {
	Path string
}

// NewSource creates a source reading the description at path.
func NewSource(path string) *Source {
	return &Source{Path: path}
}

// Describe reads and compiles the description file.
func (s *Source) Describe(ctx context.Context) (*ports.Description, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read automaton file: %w", domain.ErrConfiguration, err)
	}
	desc, err := compiler.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return desc, nil
}

// Load implements ports.AutomatonSource.
func (s *Source) Load(ctx context.Context) (*domain.Automaton, error) {
	desc, err := s.Describe(ctx)
	if err != nil {
		return nil, err
	}
	return desc.Automaton, nil
}
