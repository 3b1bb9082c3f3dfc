package capability

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/aretw0/epa/pkg/domain"
)

// ExceptionPolicy holds the whitelist and blacklist of an action method.
// Category order is the declaration order.
type ExceptionPolicy struct {
	Enabled    []string
	NotEnabled []string
}

// ResolvedOperation is an entry of the action resolution table.
type ResolvedOperation struct {
	Signature string
	Action    domain.Action
	// Policy is nil for constructors and for methods that declare neither list.
	Policy *ExceptionPolicy
}

// StateBinding is an entry of the state query table.
type StateBinding struct {
	State     domain.State
	Predicate Predicate
	// Source describes where the predicate came from, for diagnostics.
	Source string
}

// Tables are the read-only lookup tables built once per monitored type.
type Tables struct {
	Subject      string
	constructors map[string]ResolvedOperation
	methods      map[string]ResolvedOperation
	states       []StateBinding
}

// Constructor looks up a classified constructor.
func (t *Tables) Constructor(signature string) (ResolvedOperation, bool) {
	op, ok := t.constructors[signature]
	return op, ok
}

// Method looks up a classified method.
func (t *Tables) Method(signature string) (ResolvedOperation, bool) {
	op, ok := t.methods[signature]
	return op, ok
}

// States returns the state query table in automaton order.
func (t *Tables) States() []StateBinding {
	return append([]StateBinding(nil), t.states...)
}

// Resolve builds the action resolution and state query tables.
// Every non-initial state must resolve to exactly one query on the subject
// type or one of its supertypes.
func Resolve(automaton *domain.Automaton, subject *SubjectType) (*Tables, error) {
	if automaton == nil || subject == nil {
		return nil, fmt.Errorf("%w: automaton and subject type are required", domain.ErrConfiguration)
	}

	tables := &Tables{
		Subject:      subject.Name,
		constructors: make(map[string]ResolvedOperation),
		methods:      make(map[string]ResolvedOperation),
	}

	if err := tables.resolveOperations(automaton, subject); err != nil {
		return nil, err
	}
	if err := tables.resolveStates(automaton, subject); err != nil {
		return nil, err
	}
	return tables, nil
}

func (t *Tables) resolveOperations(automaton *domain.Automaton, subject *SubjectType) error {
	for _, typ := range subject.chain() {
		declared := make(map[string]bool)
		for _, op := range typ.Operations {
			if op.Signature == "" {
				return fmt.Errorf("%w: %s declares an operation without signature", domain.ErrConfiguration, typ.Name)
			}
			if declared[op.Signature] {
				return fmt.Errorf("%w: %s binds operation %s twice", domain.ErrConfiguration, typ.Name, op.Signature)
			}
			declared[op.Signature] = true

			// A more derived type already bound this signature.
			if _, ok := t.constructors[op.Signature]; ok {
				continue
			}
			if _, ok := t.methods[op.Signature]; ok {
				continue
			}

			action := domain.Action(op.Action)
			if !automaton.HasAction(action) {
				return fmt.Errorf("%w: %s.%s is bound to unknown action %q", domain.ErrConfiguration, typ.Name, op.Signature, op.Action)
			}

			resolved := ResolvedOperation{Signature: op.Signature, Action: action}
			if op.Constructor {
				t.constructors[op.Signature] = resolved
				continue
			}
			if op.EnabledExceptions != "" || op.NotEnabledExceptions != "" {
				resolved.Policy = &ExceptionPolicy{
					Enabled:    ParseCategories(op.EnabledExceptions),
					NotEnabled: ParseCategories(op.NotEnabledExceptions),
				}
			}
			t.methods[op.Signature] = resolved
		}
	}
	return nil
}

func (t *Tables) resolveStates(automaton *domain.Automaton, subject *SubjectType) error {
	var errs []error
	for _, state := range automaton.States() {
		if state == automaton.Initial() {
			continue
		}
		binding, err := resolveState(state, subject)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.states = append(t.states, binding)
	}

	// Queries bound to states the automaton does not know, or to the initial state.
	for _, typ := range subject.chain() {
		for _, q := range typ.Queries {
			s := domain.State(q.State)
			if s == automaton.Initial() {
				errs = append(errs, fmt.Errorf("%w: %s binds a query to initial state %q", domain.ErrConfiguration, typ.Name, s))
			} else if !automaton.HasState(s) {
				errs = append(errs, fmt.Errorf("%w: %s binds a query to unknown state %q", domain.ErrConfiguration, typ.Name, s))
			}
		}
	}
	return errors.Join(errs...)
}

func resolveState(state domain.State, subject *SubjectType) (StateBinding, error) {
	for _, typ := range subject.chain() {
		var found []Query
		for _, q := range typ.Queries {
			if domain.State(q.State) == state {
				found = append(found, q)
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			pred, source, err := bindQuery(found[0], subject, typ)
			if err != nil {
				return StateBinding{}, err
			}
			return StateBinding{State: state, Predicate: pred, Source: source}, nil
		default:
			return StateBinding{}, fmt.Errorf("%w: %s binds %d queries to state %q", domain.ErrConfiguration, typ.Name, len(found), state)
		}
	}
	return StateBinding{}, fmt.Errorf("%w: boolean query for state %q was not found in %s or any supertype", domain.ErrConfiguration, state, subject.Name)
}

var (
	boolType  = reflect.TypeOf(false)
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// bindQuery turns a Query into a Predicate. Method queries are checked
// against the most derived Go type, whose method set includes methods
// promoted from embedded types.
func bindQuery(q Query, subject, declaring *SubjectType) (Predicate, string, error) {
	if q.Func != nil {
		return q.Func, declaring.Name + ".<func>", nil
	}
	if q.Method == "" {
		return nil, "", fmt.Errorf("%w: %s binds state %q without method or func", domain.ErrConfiguration, declaring.Name, q.State)
	}

	typ := subject.Type
	for _, t := range subject.chain() {
		if typ != nil {
			break
		}
		typ = t.Type
	}
	if typ == nil {
		return nil, "", fmt.Errorf("%w: %s needs a Go type to resolve method %s", domain.ErrConfiguration, subject.Name, q.Method)
	}

	m, ok := typ.MethodByName(q.Method)
	if !ok && typ.Kind() != reflect.Pointer {
		m, ok = reflect.PointerTo(typ).MethodByName(q.Method)
	}
	if !ok {
		return nil, "", fmt.Errorf("%w: method %s for state %q not found on %s", domain.ErrConfiguration, q.Method, q.State, typ)
	}

	// m.Type includes the receiver.
	mt := m.Type
	returnsErr := mt.NumOut() == 2 && mt.Out(1) == errorType
	if mt.NumIn() != 1 || mt.NumOut() < 1 || mt.Out(0) != boolType || (mt.NumOut() == 2 && !returnsErr) || mt.NumOut() > 2 {
		return nil, "", fmt.Errorf("%w: method %s.%s must have signature func() bool or func() (bool, error)", domain.ErrConfiguration, typ, q.Method)
	}

	name := q.Method
	pred := func(subject any) (bool, error) {
		v := reflect.ValueOf(subject)
		method := v.MethodByName(name)
		if !method.IsValid() {
			return false, fmt.Errorf("%T has no method %s", subject, name)
		}
		out := method.Call(nil)
		if returnsErr && !out[1].IsNil() {
			return false, out[1].Interface().(error)
		}
		return out[0].Bool(), nil
	}
	return pred, typ.String() + "." + name, nil
}
