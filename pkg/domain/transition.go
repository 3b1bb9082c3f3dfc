package domain

import (
	"fmt"
	"sync/atomic"
)

// Transition is an observed (from, action, to) triple.
// To may be NoState when no state predicate held after the action.
type Transition struct {
	From   State  `json:"from" yaml:"from"`
	Action Action `json:"action" yaml:"action"`
	To     State  `json:"to,omitempty" yaml:"to,omitempty"`
}

// HasTarget reports whether the post-action state was classified.
func (t Transition) HasTarget() bool {
	return t.To != NoState
}

func (t Transition) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t.From, t.Action, t.To)
}

// SubjectID identifies a monitored object in a trace.
// IDs are assigned in order of first sight and are never reused by the
// sequence that handed them out.
type SubjectID uint64

// SubjectSequence hands out subject ids. Monitors writing to the same
// recorder must share one, or ids collide across their lifetimes.
// It is safe for concurrent use.
type SubjectSequence struct {
	last atomic.Uint64
}

// NewSubjectSequence returns a sequence whose first id is after.
func NewSubjectSequence(after SubjectID) *SubjectSequence {
	s := &SubjectSequence{}
	s.last.Store(uint64(after))
	return s
}

// Next returns a fresh id.
func (s *SubjectSequence) Next() SubjectID {
	return SubjectID(s.last.Add(1))
}

// Skip makes sure the next id is greater than id.
func (s *SubjectSequence) Skip(id SubjectID) {
	for {
		last := s.last.Load()
		if last >= uint64(id) || s.last.CompareAndSwap(last, uint64(id)) {
			return
		}
	}
}

// Subject is the recorder-facing identity of a monitored object.
type Subject struct {
	ID   SubjectID `json:"id"`
	Type string    `json:"type"`
}
