package ledger

import "strings"

const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleFinance  = "Finance"
	RoleCustomer = "Customer"
)

// Actor is the already-authenticated caller. Identity and role checks upstream are trusted.
type Actor struct {
	ID    string
	Roles []string
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

// Elevated actors may act on behalf of any customer.
func (a Actor) Elevated() bool {
	return a.HasRole(RoleAdmin) || a.HasRole(RoleManager)
}

// CanActFor is the ownership-or-elevated-role rule.
func (a Actor) CanActFor(customerID string) bool {
	if a.Elevated() {
		return true
	}
	return a.ID != "" && a.ID == customerID
}

func (a Actor) CanReadReports() bool {
	return a.Elevated() || a.HasRole(RoleFinance)
}
