// Package loam reads automaton descriptions from a Loam repository.
// A description is a document whose frontmatter carries the automaton
// fields; the document body is free-form prose about the protocol.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/epa/internal/compiler"
	"github.com/aretw0/epa/internal/dto"
	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
	"github.com/aretw0/loam"
)

// Source adapts a Loam repository to ports.DescriptionSource.
type Source struct {
	Repo *loam.TypedRepository[dto.AutomatonDescription]
	ID   string
}

// New creates a source for the document id (with or without extension).
func New(repo *loam.TypedRepository[dto.AutomatonDescription], id string) *Source {
	return &Source{Repo: repo, ID: id}
}

// Describe retrieves the document and compiles its frontmatter.
func (s *Source) Describe(ctx context.Context) (*ports.Description, error) {
	doc, err := s.Repo.Get(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: loam get failed for %s: %w", domain.ErrConfiguration, s.ID, err)
	}

	meta := doc.Data
	if meta.Name == "" {
		meta.Name = trimExtension(doc.ID)
	}
	desc, err := compiler.Compile(meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.ID, err)
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

// List returns the IDs of the documents that declare states.
func List(ctx context.Context, repo *loam.TypedRepository[dto.AutomatonDescription]) ([]string, error) {
	docs, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Data.States) == 0 {
			continue
		}
		id := trimExtension(doc.ID)
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existing, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
