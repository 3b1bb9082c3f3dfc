package execution

import (
	"errors"
	"fmt"
)

// ErrLoopBound is returned by Tick when a loop ran past the limit.
var ErrLoopBound = errors.New("loop iteration bound exceeded")

// LoopCounter bounds the iterations of instrumented loops, so a test
// execution stuck in an infinite loop can be aborted.
type LoopCounter struct {
	limit  int
	active bool
	counts map[int]int
}

// NewLoopCounter returns an active counter. A limit <= 0 disables the bound.
func NewLoopCounter(limit int) *LoopCounter {
	return &LoopCounter{
		limit:  limit,
		active: true,
		counts: make(map[int]int),
	}
}

// Active reports whether iterations are being counted.
func (c *LoopCounter) Active() bool { return c.active }

// SetActive switches counting on or off.
func (c *LoopCounter) SetActive(active bool) { c.active = active }

// Tick counts one iteration of the loop with the given index.
func (c *LoopCounter) Tick(loop int) error {
	if !c.active {
		return nil
	}
	c.counts[loop]++
	if c.limit > 0 && c.counts[loop] > c.limit {
		return fmt.Errorf("%w: loop %d ran %d times (limit %d)", ErrLoopBound, loop, c.counts[loop], c.limit)
	}
	return nil
}

// Count returns the iterations counted for a loop.
func (c *LoopCounter) Count(loop int) int { return c.counts[loop] }

// Reset zeroes every counter.
func (c *LoopCounter) Reset() {
	c.counts = make(map[int]int)
}

// Suspend implements ports.Suspendable.
func (c *LoopCounter) Suspend() func() {
	wasActive := c.active
	c.active = false
	return func() { c.active = wasActive }
}
