package ports

import (
	"context"

	"github.com/aretw0/epa/pkg/domain"
)

// TransitionRecorder persists accepted transitions into an execution trace.
// The monitor never queries it back while tracing. At construction, a
// recorder that is also a TraceReader is listed once so new subject ids
// continue after the recorded ones.
type TransitionRecorder interface {
	Record(ctx context.Context, subject domain.Subject, t domain.Transition) error
}

// TraceReader reads back what a recorder persisted.
type TraceReader interface {
	// Subjects lists recorded subjects ordered by ID.
	Subjects(ctx context.Context) ([]domain.Subject, error)

	// Transitions returns the transitions of one subject in recording order.
	// Returns domain.ErrSubjectNotFound for an unknown subject.
	Transitions(ctx context.Context, id domain.SubjectID) ([]domain.Transition, error)
}

// TraceStore is a recorder that can be read back.
type TraceStore interface {
	TransitionRecorder
	TraceReader
}
