package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medigrid-hms/backend/internal/scope"
)

type fakeMemberships struct {
	member map[uuid.UUID]bool
}

func (f *fakeMemberships) UserHasOrgAccess(_ context.Context, orgID, _ uuid.UUID) (bool, error) {
	return f.member[orgID], nil
}

func tenantRouter(t *testing.T, role string, claimOrg *uuid.UUID, orgs MembershipChecker, capture *scope.Scope) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserID, uuid.New())
		c.Set(ContextUserRole, role)
		c.Set(ContextUserEmail, "")
		c.Set(ContextClaimOrgID, claimOrg)
	})
	r.Use(Tenant(orgs))
	r.GET("/", func(c *gin.Context) {
		*capture = MustScope(c)
		c.Status(http.StatusOK)
	})
	return r
}

func TestTenant_ClaimOrganization(t *testing.T) {
	orgID := uuid.New()
	var got scope.Scope
	r := tenantRouter(t, "staff", &orgID, &fakeMemberships{}, &got)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got.Unscoped() || *got.OrganizationID != orgID {
		t.Errorf("scope = %+v, want org %s", got, orgID)
	}
}

func TestTenant_PlatformAdminUnscoped(t *testing.T) {
	var got scope.Scope
	r := tenantRouter(t, "platform_admin", nil, &fakeMemberships{}, &got)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !got.Unscoped() {
		t.Errorf("platform admin without header should be unscoped, got %+v", got)
	}
}

func TestTenant_PlatformAdminHeaderNarrows(t *testing.T) {
	orgID := uuid.New()
	var got scope.Scope
	r := tenantRouter(t, "platform_admin", nil, &fakeMemberships{}, &got)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderOrganizationID, orgID.String())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got.Unscoped() || *got.OrganizationID != orgID {
		t.Errorf("scope = %+v, want org %s", got, orgID)
	}
}

func TestTenant_HeaderRequiresMembership(t *testing.T) {
	orgID := uuid.New()
	var got scope.Scope

	// not a member: 403
	r := tenantRouter(t, "staff", nil, &fakeMemberships{}, &got)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderOrganizationID, orgID.String())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("non-member status = %d, want 403", w.Code)
	}

	// member: scoped
	r = tenantRouter(t, "staff", nil, &fakeMemberships{member: map[uuid.UUID]bool{orgID: true}}, &got)
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderOrganizationID, orgID.String())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("member status = %d, want 200", w.Code)
	}
	if got.Unscoped() || *got.OrganizationID != orgID {
		t.Errorf("scope = %+v, want org %s", got, orgID)
	}
}

func TestTenant_NoContextForbidden(t *testing.T) {
	var got scope.Scope
	r := tenantRouter(t, "staff", nil, &fakeMemberships{}, &got)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 when no org context", w.Code)
	}
}
