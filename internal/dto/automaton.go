package dto

// AutomatonDescription is the serialized form of an automaton description.
// It uses "mapstructure" tags to match Frontmatter keys and "yaml" tags for
// standalone files.
type AutomatonDescription struct {
	Name        string                  `json:"name" yaml:"name" mapstructure:"name"`
	Initial     string                  `json:"initial" yaml:"initial" mapstructure:"initial"`
	States      []string                `json:"states" yaml:"states" mapstructure:"states"`
	Actions     []string                `json:"actions" yaml:"actions" mapstructure:"actions"`
	Transitions []TransitionDescription `json:"transitions,omitempty" yaml:"transitions,omitempty" mapstructure:"transitions"`

	// Errors maps an error category to its parent category.
	// An empty parent means the root category.
	Errors map[string]string `json:"errors,omitempty" yaml:"errors,omitempty" mapstructure:"errors"`

	// Bindings is decoded by capability.Decode.
	Bindings map[string]any `json:"bindings,omitempty" yaml:"bindings,omitempty" mapstructure:"bindings"`
}

type TransitionDescription struct {
	From   string `json:"from" yaml:"from" mapstructure:"from"`
	Action string `json:"action" yaml:"action" mapstructure:"action"`
	To     string `json:"to" yaml:"to" mapstructure:"to"`
}
