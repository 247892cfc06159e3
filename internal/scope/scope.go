// Package scope carries the resolved tenant scope of a request and the
// shared list-query parameters (pagination, sorting) applied by repositories.
package scope

import "github.com/google/uuid"

// Scope is the tenant filter applied to every repository query.
// A nil OrganizationID means platform-level access with no tenant predicate.
type Scope struct {
	OrganizationID *uuid.UUID
}

// ForOrganization returns a scope restricted to one organization.
func ForOrganization(id uuid.UUID) Scope {
	return Scope{OrganizationID: &id}
}

// Platform returns the unscoped platform-admin scope.
func Platform() Scope {
	return Scope{}
}

// Unscoped reports whether no tenant filter applies.
func (s Scope) Unscoped() bool {
	return s.OrganizationID == nil
}

// Matches reports whether a record owned by orgID is visible under this scope.
func (s Scope) Matches(orgID uuid.UUID) bool {
	return s.OrganizationID == nil || *s.OrganizationID == orgID
}
