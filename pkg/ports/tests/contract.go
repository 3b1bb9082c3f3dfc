package tests

import (
	"context"
	"testing"

	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
)

// AutomatonSourceContractTest is a reusable test suite that verifies if an
// adapter complies with ports.AutomatonSource. want is the automaton the
// adapter is expected to produce.
func AutomatonSourceContractTest(t *testing.T, source ports.AutomatonSource, want *domain.Automaton) {
	t.Helper()

	got, err := source.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error loading automaton: %v", err)
	}

	t.Run("Initial", func(t *testing.T) {
		if got.Initial() != want.Initial() {
			t.Errorf("initial mismatch. got %q, want %q", got.Initial(), want.Initial())
		}
	})

	t.Run("States", func(t *testing.T) {
		gotStates, wantStates := got.States(), want.States()
		if len(gotStates) != len(wantStates) {
			t.Fatalf("expected %d states, got %d (%v)", len(wantStates), len(gotStates), gotStates)
		}
		for i := range wantStates {
			if gotStates[i] != wantStates[i] {
				t.Errorf("state %d mismatch. got %q, want %q", i, gotStates[i], wantStates[i])
			}
		}
	})

	t.Run("Actions", func(t *testing.T) {
		for _, a := range want.Actions() {
			if !got.HasAction(a) {
				t.Errorf("expected action %q to be declared", a)
			}
		}
		if len(got.Actions()) != len(want.Actions()) {
			t.Errorf("expected %d actions, got %d", len(want.Actions()), len(got.Actions()))
		}
	})

	t.Run("Transitions", func(t *testing.T) {
		for _, tr := range want.Transitions() {
			if !got.Declares(tr) {
				t.Errorf("expected transition %s to be declared", tr)
			}
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		again, err := source.Load(context.Background())
		if err != nil {
			t.Fatalf("second load failed: %v", err)
		}
		if again.Initial() != got.Initial() || len(again.States()) != len(got.States()) {
			t.Error("loading twice must yield the same automaton")
		}
	})
}
