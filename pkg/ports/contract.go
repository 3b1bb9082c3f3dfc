package ports

import (
	"context"
	"testing"

	"github.com/aretw0/epa/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTraceStoreContract runs a suite of tests to verify that a TraceStore
// implementation adheres to the defined interface contract.
// The store must be empty when passed in.
func RunTraceStoreContract(t *testing.T, store TraceStore) {
	ctx := context.Background()

	file := domain.Subject{ID: 1, Type: "File"}
	socket := domain.Subject{ID: 2, Type: "Socket"}

	trace := []domain.Transition{
		{From: "Closed", Action: "open", To: "Open"},
		{From: "Open", Action: "read", To: "Open"},
		{From: "Open", Action: "close"},
	}

	t.Run("Record and Read", func(t *testing.T) {
		for _, tr := range trace {
			require.NoError(t, store.Record(ctx, file, tr), "Record should not return error")
		}

		got, err := store.Transitions(ctx, file.ID)
		require.NoError(t, err)
		assert.Equal(t, trace, got, "transitions must come back in recording order")
	})

	t.Run("Subjects", func(t *testing.T) {
		require.NoError(t, store.Record(ctx, socket, domain.Transition{From: "Closed", Action: "connect", To: "Connected"}))

		subjects, err := store.Subjects(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.Subject{file, socket}, subjects)
	})

	t.Run("Unknown Subject", func(t *testing.T) {
		_, err := store.Transitions(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrSubjectNotFound)
	})
}
