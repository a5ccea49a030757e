package policy

import "strings"

// Roles the document corpus is flagged for. Every indexed fragment carries
// one boolean visibility flag per role; retrieval filters on the caller's
// flag, so an unknown role must be rejected before it reaches the index.
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
)

var knownRoles = map[string]struct{}{
	RoleEmployee: {},
	RoleManager:  {},
	RoleHR:       {},
}

// NormalizeRole lowercases and trims a role claim and reports whether it is
// one of the known corpus roles.
func NormalizeRole(role string) (string, bool) {
	r := strings.ToLower(strings.TrimSpace(role))
	_, ok := knownRoles[r]
	return r, ok
}

// Roles returns the known role names.
func Roles() []string {
	return []string{RoleEmployee, RoleManager, RoleHR}
}
