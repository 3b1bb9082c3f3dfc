package domain

// State is the identifier of an abstract automaton state.
type State string

// NoState is returned when no state predicate holds for an object.
// It is a legitimate, unclassifiable snapshot, not an error.
const NoState State = ""

// Action is the identifier of an automaton action.
type Action string

func (s State) String() string {
	if s == NoState {
		return "<none>"
	}
	return string(s)
}

func (a Action) String() string { return string(a) }
