package compiler

import (
	"testing"

	"github.com/aretw0/epa/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fileDescription = `
name: File
initial: Closed
states: [Closed, Open]
actions: [open, read, close]
transitions:
  - {from: Closed, action: open, to: Open}
  - {from: Open, action: read, to: Open}
  - {from: Open, action: close, to: Closed}
errors:
  IOException: Exception
  EOFException: IOException
  IllegalStateException: RuntimeException
  RuntimeException: Exception
bindings:
  subject: File
  states:
    Open: IsOpen
  operations:
    - {signature: "Open()", action: open}
    - signature: "Read()"
      action: read
      enabled_exceptions: [Exception]
      not_enabled_exceptions: IllegalStateException
`

func TestParse(t *testing.T) {
	desc, err := Parse([]byte(fileDescription))
	require.NoError(t, err)

	a := desc.Automaton
	assert.Equal(t, "File", a.Name())
	assert.Equal(t, domain.State("Closed"), a.Initial())
	assert.Equal(t, []domain.State{"Closed", "Open"}, a.States())
	assert.True(t, a.Declares(domain.Transition{From: "Open", Action: "close", To: "Closed"}))

	assert.True(t, desc.Taxonomy.IsA("EOFException", "Exception"))
	assert.True(t, desc.Taxonomy.IsA("IllegalStateException", domain.RootCategory))
	assert.False(t, desc.Taxonomy.IsA("IOException", "RuntimeException"))

	require.Len(t, desc.Bindings.Operations, 2)
	assert.Equal(t, "Exception", desc.Bindings.Operations[1].EnabledExceptions)
	assert.Equal(t, "IllegalStateException", desc.Bindings.Operations[1].NotEnabledExceptions)
	assert.Equal(t, map[string]string{"Open": "IsOpen"}, desc.Bindings.States)
}

func TestParse_JSON(t *testing.T) {
	desc, err := Parse([]byte(`{"name":"Lock","initial":"Free","states":["Free","Held"],"actions":["acquire","release"]}`))
	require.NoError(t, err)
	assert.Equal(t, domain.State("Free"), desc.Automaton.Initial())
	assert.True(t, desc.Bindings.IsZero())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "states: [Closed"},
		{"unknown initial", "initial: Gone\nstates: [Closed]"},
		{"taxonomy cycle", "initial: A\nstates: [A]\nerrors: {X: Y, Y: X}"},
		{"unknown binding key", "initial: A\nstates: [A]\nbindings: {subject: F, wat: 1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}
