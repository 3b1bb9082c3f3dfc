package execution

import (
	"testing"

	"github.com/aretw0/epa/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.Suspendable = (*Tracer)(nil)
	_ ports.Suspendable = (*LoopCounter)(nil)
)

func TestTracer(t *testing.T) {
	tr := NewTracer()
	tr.EnteredMethod("File", "Open()")

	tr.SetTraceCalls(false)
	tr.EnteredMethod("File", "Read()")
	tr.SetTraceCalls(true)

	tr.SetEnabled(false)
	tr.EnteredMethod("File", "Close()")
	tr.SetEnabled(true)

	assert.Equal(t, []Call{{Owner: "File", Signature: "Open()"}}, tr.Calls())

	tr.Clear()
	assert.Empty(t, tr.Calls())
}

func TestTracer_SuspendRestoresBothSwitches(t *testing.T) {
	tr := NewTracer()
	tr.SetTraceCalls(false)

	resume := tr.Suspend()
	assert.False(t, tr.Enabled())
	assert.False(t, tr.TraceCallsEnabled())
	resume()

	assert.True(t, tr.Enabled())
	assert.False(t, tr.TraceCallsEnabled(), "a switch that was off stays off")
}

func TestLoopCounter(t *testing.T) {
	c := NewLoopCounter(2)
	require.NoError(t, c.Tick(7))
	require.NoError(t, c.Tick(7))
	assert.ErrorIs(t, c.Tick(7), ErrLoopBound)
	assert.NoError(t, c.Tick(8), "loops are counted separately")

	resume := c.Suspend()
	assert.NoError(t, c.Tick(8))
	assert.NoError(t, c.Tick(8))
	assert.Equal(t, 1, c.Count(8), "suspended counters do not count")
	resume()
	assert.True(t, c.Active())

	c.Reset()
	assert.Equal(t, 0, c.Count(7))

	unbounded := NewLoopCounter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, unbounded.Tick(1))
	}

	c.SetActive(false)
	resume = c.Suspend()
	resume()
	assert.False(t, c.Active(), "an inactive counter stays inactive")
}
