package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJavaLikeTaxonomy() *Taxonomy {
	return NewTaxonomy().
		MustDeclare("Exception", "").
		MustDeclare("RuntimeException", "Exception").
		MustDeclare("IllegalStateException", "RuntimeException").
		MustDeclare("IOException", "Exception")
}

func TestTaxonomy_IsA(t *testing.T) {
	tx := newJavaLikeTaxonomy()

	assert.True(t, tx.IsA("IllegalStateException", "IllegalStateException"), "self")
	assert.True(t, tx.IsA("IllegalStateException", "RuntimeException"))
	assert.True(t, tx.IsA("IllegalStateException", "Exception"))
	assert.True(t, tx.IsA("IllegalStateException", RootCategory))
	assert.False(t, tx.IsA("RuntimeException", "IllegalStateException"), "supertype is not a subtype")
	assert.False(t, tx.IsA("IOException", "RuntimeException"))
	assert.True(t, tx.IsA("Undeclared", RootCategory), "undeclared categories hang off the root")
	assert.False(t, tx.IsA("Undeclared", "Exception"))
}

func TestTaxonomy_Declare(t *testing.T) {
	tx := newJavaLikeTaxonomy()

	require.NoError(t, tx.Declare("IOException", "Exception"), "same redeclaration is idempotent")
	assert.ErrorIs(t, tx.Declare("IOException", "RuntimeException"), ErrConfiguration)
	assert.ErrorIs(t, tx.Declare("Exception", "IllegalStateException"), ErrConfiguration, "cycle")
	assert.ErrorIs(t, tx.Declare(RootCategory, ""), ErrConfiguration)
	assert.Panics(t, func() { tx.MustDeclare("", "") })
}

func TestTaxonomy_CategoryOf(t *testing.T) {
	errClosed := errors.New("file already closed")
	tx := newJavaLikeTaxonomy()
	tx.Bind(errClosed, "IllegalStateException")

	assert.Equal(t, "IOException", tx.CategoryOf(NewException("IOException", "disk")))
	assert.Equal(t, "IOException", tx.CategoryOf(fmt.Errorf("read: %w", NewException("IOException", ""))))
	assert.Equal(t, "IllegalStateException", tx.CategoryOf(fmt.Errorf("read: %w", errClosed)))
	assert.Equal(t, RootCategory, tx.CategoryOf(errors.New("plain")))
}
