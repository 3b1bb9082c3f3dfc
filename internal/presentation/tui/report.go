package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/epa/internal/presentation/graph"
	"github.com/aretw0/epa/pkg/domain"
)

// SubjectTrace is one subject's recorded transitions.
type SubjectTrace struct {
	Subject     domain.Subject
	Transitions []domain.Transition
}

// TraceReport renders traces as a markdown document: one table per
// subject, undeclared transitions flagged, and overall coverage of the
// declared transitions when the automaton declares any.
func TraceReport(a *domain.Automaton, traces []SubjectTrace) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Trace of %s\n\n", a.Name())

	if len(traces) == 0 {
		sb.WriteString("_No transitions recorded._\n")
		return sb.String()
	}

	var all []domain.Transition
	for _, tr := range traces {
		fmt.Fprintf(&sb, "## %s #%d\n\n", tr.Subject.Type, tr.Subject.ID)
		sb.WriteString("| # | From | Action | To | |\n|---|---|---|---|---|\n")
		for i, t := range tr.Transitions {
			note := ""
			if len(a.Transitions()) > 0 && !a.Declares(t) {
				note = "undeclared"
			}
			fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s |\n", i+1, t.From, t.Action, t.To, note)
		}
		sb.WriteString("\n")
		all = append(all, tr.Transitions...)
	}

	covered, declared := graph.Coverage(a, all)
	if declared > 0 {
		fmt.Fprintf(&sb, "**Coverage:** %d of %d declared transitions observed (%.0f%%).\n",
			covered, declared, 100*float64(covered)/float64(declared))
	}
	return sb.String()
}
