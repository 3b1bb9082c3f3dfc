package capability

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/aretw0/epa/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Bindings is the declarative form of subject metadata, as found in
// automaton description files. State queries can only name methods here;
// Go predicates are attached in code.
type Bindings struct {
	Subject    string             `json:"subject" mapstructure:"subject"`
	Operations []OperationBinding `json:"operations" mapstructure:"operations"`
	// States maps a state name to the name of its boolean query method.
	States map[string]string `json:"states" mapstructure:"states"`
}

// OperationBinding is the declarative form of Operation.
// Exception lists accept either a comma-separated string or a list.
type OperationBinding struct {
	Signature            string `json:"signature" mapstructure:"signature"`
	Constructor          bool   `json:"constructor" mapstructure:"constructor"`
	Action               string `json:"action" mapstructure:"action"`
	EnabledExceptions    string `json:"enabled_exceptions" mapstructure:"enabled_exceptions"`
	NotEnabledExceptions string `json:"not_enabled_exceptions" mapstructure:"not_enabled_exceptions"`
}

// Decode reads Bindings from a generic map (YAML, JSON or frontmatter).
// Unknown keys are rejected.
func Decode(raw map[string]any) (Bindings, error) {
	var b Bindings
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  joinListHook,
		ErrorUnused: true,
		Result:      &b,
	})
	if err != nil {
		return Bindings{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Bindings{}, fmt.Errorf("%w: invalid bindings: %v", domain.ErrConfiguration, err)
	}
	return b, nil
}

// joinListHook lets exception lists be written as YAML sequences.
func joinListHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String || from.Kind() != reflect.Slice {
		return data, nil
	}
	items, ok := data.([]any)
	if !ok {
		return data, nil
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprint(item))
	}
	return strings.Join(parts, ","), nil
}

// IsZero reports whether no binding was declared.
func (b Bindings) IsZero() bool {
	return b.Subject == "" && len(b.Operations) == 0 && len(b.States) == 0
}

// Apply returns a copy of base extended with the declared bindings.
// A nil base yields a type without Go type information, which can only
// resolve queries attached as Func later on.
func (b Bindings) Apply(base *SubjectType) *SubjectType {
	out := &SubjectType{}
	if base != nil {
		*out = *base
		out.Operations = append([]Operation(nil), base.Operations...)
		out.Queries = append([]Query(nil), base.Queries...)
	}
	if b.Subject != "" {
		out.Name = b.Subject
	}

	for _, op := range b.Operations {
		out.Operations = append(out.Operations, Operation{
			Signature:            op.Signature,
			Constructor:          op.Constructor,
			Action:               op.Action,
			EnabledExceptions:    op.EnabledExceptions,
			NotEnabledExceptions: op.NotEnabledExceptions,
		})
	}

	states := make([]string, 0, len(b.States))
	for s := range b.States {
		states = append(states, s)
	}
	sort.Strings(states)
	for _, s := range states {
		out.Queries = append(out.Queries, Query{State: s, Method: b.States[s]})
	}
	return out
}
