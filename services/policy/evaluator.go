package policy

import "github.com/inboxmarket/datagate/models"

// Allowed decides whether a category is currently permitted by a policy.
// The global switch dominates; unknown categories are denied, not erred.
func Allowed(p *models.Policy, category models.Category) bool {
	if p == nil || !p.GlobalDataSharing {
		return false
	}
	if !category.Valid() {
		return false
	}
	return p.CategoryAllowed(category)
}
