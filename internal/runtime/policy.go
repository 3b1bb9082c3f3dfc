package runtime

import (
	"github.com/aretw0/epa/pkg/capability"
	"github.com/aretw0/epa/pkg/domain"
)

// ActionEnabled reports whether an error returned by a classified method
// still counts as a legitimate use of its action.
func ActionEnabled(taxonomy *domain.Taxonomy, policy *capability.ExceptionPolicy, thrown error) bool {
	// Methods without lists are conservatively not enabled.
	if policy == nil {
		return false
	}

	category := taxonomy.CategoryOf(thrown)

	// The first matching whitelist category decides; later ones are not consulted.
	for _, enabled := range policy.Enabled {
		if !taxonomy.IsA(category, enabled) {
			continue
		}
		for _, notEnabled := range policy.NotEnabled {
			if taxonomy.IsA(category, notEnabled) {
				return false
			}
		}
		return true
	}
	return false
}

// ActionEnabled evaluates the exception policy of a method signature.
// Unclassified signatures are not enabled.
func (m *Monitor) ActionEnabled(signature string, thrown error) bool {
	op, ok := m.tables.Method(signature)
	if !ok {
		return false
	}
	return ActionEnabled(m.taxonomy, op.Policy, thrown)
}
