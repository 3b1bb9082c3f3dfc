package runtime

import (
	"fmt"

	"github.com/aretw0/epa/pkg/domain"
)

// frame is one classified call in progress. It carries the state its
// subject was in when the call began, so nested calls into other subjects
// cannot overwrite it.
type frame struct {
	owner     string
	signature string
	action    domain.Action
	pre       domain.State
}

func (f frame) String() string {
	return f.owner + "." + f.signature
}

type callStack []frame

func (s *callStack) push(f frame) {
	*s = append(*s, f)
}

// pop removes the innermost frame and checks that it belongs to the
// exiting call.
func (s *callStack) pop(owner, signature string) (frame, error) {
	if len(*s) == 0 {
		return frame{}, fmt.Errorf("%w: exit of %s.%s but the call stack is empty", domain.ErrInternalConsistency, owner, signature)
	}
	f := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	if f.owner != owner || f.signature != signature {
		return f, fmt.Errorf("%w: exit of %s.%s but last call on stack was %s", domain.ErrInternalConsistency, owner, signature, f)
	}
	return f, nil
}
