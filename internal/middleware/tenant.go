package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medigrid-hms/backend/internal/models"
	"github.com/medigrid-hms/backend/internal/scope"
	"github.com/medigrid-hms/backend/pkg/response"
)

// ContextScope is the key for the resolved tenant scope in gin context.
const ContextScope = "tenant_scope"

// HeaderOrganizationID carries the secondary tenant context (e.g. resolved
// from the admin UI's active organization).
const HeaderOrganizationID = "X-Organization-ID"

// MembershipChecker verifies a user's access to an organization.
type MembershipChecker interface {
	UserHasOrgAccess(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// Tenant resolves the request's tenant scope. Call after JWT.
//
// Precedence: the principal's own organization claim, then the
// X-Organization-ID header (membership-checked). Unscoped access is an
// explicit capability: only platform_admin resolves to no tenant filter.
// Any other principal without an organization gets 403.
func Tenant(orgs MembershipChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet(ContextUserID).(uuid.UUID)
		role, _ := c.MustGet(ContextUserRole).(string)
		claimOrg, _ := c.MustGet(ContextClaimOrgID).(*uuid.UUID)

		header := c.GetHeader(HeaderOrganizationID)

		if role == string(models.RolePlatformAdmin) {
			if header == "" {
				c.Set(ContextScope, scope.Platform())
				c.Next()
				return
			}
			orgID, err := uuid.Parse(header)
			if err != nil {
				response.BadRequest(c, "invalid organization id")
				c.Abort()
				return
			}
			c.Set(ContextScope, scope.ForOrganization(orgID))
			c.Next()
			return
		}

		if claimOrg != nil {
			c.Set(ContextScope, scope.ForOrganization(*claimOrg))
			c.Next()
			return
		}

		if header != "" {
			orgID, err := uuid.Parse(header)
			if err != nil {
				response.BadRequest(c, "invalid organization id")
				c.Abort()
				return
			}
			ok, err := orgs.UserHasOrgAccess(c.Request.Context(), orgID, userID)
			if err != nil || !ok {
				response.Forbidden(c, "not authorized for this organization")
				c.Abort()
				return
			}
			c.Set(ContextScope, scope.ForOrganization(orgID))
			c.Next()
			return
		}

		response.Forbidden(c, "no organization context")
		c.Abort()
	}
}

// MustScope returns the resolved tenant scope from the gin context.
func MustScope(c *gin.Context) scope.Scope {
	return c.MustGet(ContextScope).(scope.Scope)
}
