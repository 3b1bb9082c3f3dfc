package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/epa/pkg/domain"
)

// unclassifiedID stands for NoState, the target of transitions after which
// no state query held.
const unclassifiedID = "unclassified__"

// GraphOverlay contains observed trace data to visualize on the diagram.
type GraphOverlay struct {
	// Observed holds transitions read back from a trace, any subject.
	Observed []domain.Transition
	// Current highlights one state, e.g. the last state of a subject.
	Current domain.State
}

// GenerateMermaid produces a Mermaid stateDiagram-v2 of an automaton.
// Declared transitions are drawn as plain edges. With an overlay, states
// reached by the trace are styled as visited and observed transitions the
// automaton does not declare are added with an "(undeclared)" label.
func GenerateMermaid(a *domain.Automaton, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")

	for _, s := range a.States() {
		fmt.Fprintf(&sb, "    state \"%s\" as %s\n", escapeLabel(string(s)), sanitizeMermaidID(string(s)))
	}
	fmt.Fprintf(&sb, "    [*] --> %s\n", sanitizeMermaidID(string(a.Initial())))

	for _, t := range a.Transitions() {
		writeEdge(&sb, t, "")
	}

	if overlay == nil {
		return sb.String()
	}

	var undeclared []domain.Transition
	seen := make(map[domain.Transition]bool)
	unclassified := false
	for _, t := range overlay.Observed {
		if seen[t] {
			continue
		}
		seen[t] = true
		if !t.HasTarget() {
			unclassified = true
		}
		if !a.Declares(t) {
			undeclared = append(undeclared, t)
		}
	}

	if len(undeclared) > 0 {
		sb.WriteString("\n    %% Observed, not declared\n")
		if unclassified {
			fmt.Fprintf(&sb, "    state \"?\" as %s\n", unclassifiedID)
		}
		for _, t := range undeclared {
			writeEdge(&sb, t, " (undeclared)")
		}
	}

	sb.WriteString("\n    %% Overlay Styles\n")
	// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
	sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000\n")

	visited := make(map[string]bool)
	for _, t := range overlay.Observed {
		for _, s := range []domain.State{t.From, t.To} {
			id := sanitizeMermaidID(string(s))
			if s == domain.NoState || visited[id] || s == overlay.Current {
				continue
			}
			visited[id] = true
			fmt.Fprintf(&sb, "    class %s visited\n", id)
		}
	}
	if overlay.Current != domain.NoState {
		fmt.Fprintf(&sb, "    class %s current\n", sanitizeMermaidID(string(overlay.Current)))
	}

	return sb.String()
}

func writeEdge(sb *strings.Builder, t domain.Transition, suffix string) {
	to := unclassifiedID
	if t.HasTarget() {
		to = sanitizeMermaidID(string(t.To))
	}
	fmt.Fprintf(sb, "    %s --> %s : %s%s\n", sanitizeMermaidID(string(t.From)), to, escapeLabel(string(t.Action)), suffix)
}

// Coverage counts the declared transitions that appear in observed.
func Coverage(a *domain.Automaton, observed []domain.Transition) (covered, declared int) {
	hit := make(map[domain.Transition]bool)
	for _, t := range observed {
		if a.Declares(t) {
			hit[t] = true
		}
	}
	return len(hit), len(a.Transitions())
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.ReplaceAll(s, ":", "#58;")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
