package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/epa/pkg/domain"
)

// Recorder implements ports.TraceStore in memory.
// Safe for concurrent use.
type Recorder struct {
	subjects map[domain.SubjectID]domain.Subject
	traces   map[domain.SubjectID][]domain.Transition
	mu       sync.RWMutex
}

// NewRecorder creates an empty in-memory trace.
func NewRecorder() *Recorder {
	return &Recorder{
		subjects: make(map[domain.SubjectID]domain.Subject),
		traces:   make(map[domain.SubjectID][]domain.Transition),
	}
}

// Record appends t to the trace of subject.
func (r *Recorder) Record(ctx context.Context, subject domain.Subject, t domain.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects[subject.ID] = subject
	r.traces[subject.ID] = append(r.traces[subject.ID], t)
	return nil
}

// Subjects returns recorded subjects ordered by ID.
func (r *Recorder) Subjects(ctx context.Context) ([]domain.Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Subject, 0, len(r.subjects))
	for _, s := range r.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Transitions returns a copy of the trace of one subject.
func (r *Recorder) Transitions(ctx context.Context, id domain.SubjectID) ([]domain.Transition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trace, ok := r.traces[id]
	if !ok {
		return nil, domain.ErrSubjectNotFound
	}
	return append([]domain.Transition(nil), trace...), nil
}

// Len returns the total number of recorded transitions.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, trace := range r.traces {
		n += len(trace)
	}
	return n
}

// Clear drops everything recorded so far.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = make(map[domain.SubjectID]domain.Subject)
	r.traces = make(map[domain.SubjectID][]domain.Transition)
}
