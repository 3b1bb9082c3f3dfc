package domain

import (
	"errors"
	"fmt"
)

// RootCategory is the ancestor of every error category.
const RootCategory = "error"

// Categorized is implemented by errors that carry their own category name.
type Categorized interface {
	error
	ErrorCategory() string
}

// Exception is a ready-made categorized error.
type Exception struct {
	Category string
	Message  string
}

// NewException returns an error of the given category.
func NewException(category, message string) *Exception {
	return &Exception{Category: category, Message: message}
}

func (e *Exception) Error() string {
	if e.Message == "" {
		return e.Category
	}
	return e.Category + ": " + e.Message
}

// ErrorCategory implements Categorized.
func (e *Exception) ErrorCategory() string { return e.Category }

type binding struct {
	sentinel error
	category string
}

// Taxonomy holds error categories and their subtype relation.
// Categories that were never declared are direct children of RootCategory.
type Taxonomy struct {
	parents  map[string]string
	bindings []binding
}

// NewTaxonomy returns a taxonomy that only knows RootCategory.
func NewTaxonomy() *Taxonomy {
	return &Taxonomy{parents: make(map[string]string)}
}

// Declare registers category as a direct subtype of parent.
// An empty parent means RootCategory. Redeclaring with another parent or
// introducing a cycle is an error.
func (t *Taxonomy) Declare(category, parent string) error {
	if category == "" || category == RootCategory {
		return fmt.Errorf("%w: cannot declare error category %q", ErrConfiguration, category)
	}
	if parent == "" {
		parent = RootCategory
	}
	if old, ok := t.parents[category]; ok {
		if old == parent {
			return nil
		}
		return fmt.Errorf("%w: error category %q already extends %q", ErrConfiguration, category, old)
	}
	if t.IsA(parent, category) {
		return fmt.Errorf("%w: error category %q cannot extend its own subtype %q", ErrConfiguration, category, parent)
	}
	t.parents[category] = parent
	return nil
}

// MustDeclare is Declare for static setups; it panics on error.
func (t *Taxonomy) MustDeclare(category, parent string) *Taxonomy {
	if err := t.Declare(category, parent); err != nil {
		panic(err)
	}
	return t
}

// Bind maps a sentinel error to a category. Errors matching the sentinel
// with errors.Is are classified under that category.
func (t *Taxonomy) Bind(sentinel error, category string) {
	t.bindings = append(t.bindings, binding{sentinel: sentinel, category: category})
}

// Parent returns the direct supertype of category.
func (t *Taxonomy) Parent(category string) (string, bool) {
	if category == RootCategory {
		return "", false
	}
	if p, ok := t.parents[category]; ok {
		return p, true
	}
	return RootCategory, true
}

// IsA reports whether ancestor is category itself or one of its supertypes.
func (t *Taxonomy) IsA(category, ancestor string) bool {
	for c, ok := category, true; ok; c, ok = t.Parent(c) {
		if c == ancestor {
			return true
		}
	}
	return false
}

// CategoryOf returns the runtime category of err.
func (t *Taxonomy) CategoryOf(err error) string {
	var c Categorized
	if errors.As(err, &c) {
		return c.ErrorCategory()
	}
	for _, b := range t.bindings {
		if errors.Is(err, b.sentinel) {
			return b.category
		}
	}
	return RootCategory
}
