package infection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/medigrid-hms/backend/internal/middleware"
	"github.com/medigrid-hms/backend/internal/models"
	"github.com/medigrid-hms/backend/internal/scope"
)

var _ Store = (*fakeStore)(nil)

type fakeStore struct {
	cases  map[uuid.UUID]*models.InfectionCase
	audits []models.HandHygieneAudit
	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{cases: map[uuid.UUID]*models.InfectionCase{}}
}

func (f *fakeStore) CreateCase(_ context.Context, ic *models.InfectionCase) error {
	ic.ID = uuid.New()
	ic.CreatedAt = time.Now()
	ic.UpdatedAt = ic.CreatedAt
	f.cases[ic.ID] = ic
	return nil
}

func (f *fakeStore) GetCaseByID(_ context.Context, id uuid.UUID, sc scope.Scope) (*models.InfectionCase, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	ic, ok := f.cases[id]
	if !ok || !sc.Matches(ic.OrganizationID) {
		return nil, pgx.ErrNoRows
	}
	cp := *ic
	return &cp, nil
}

func (f *fakeStore) ListCases(_ context.Context, sc scope.Scope, _ CaseFilter, p scope.ListParams) ([]models.InfectionCase, int, error) {
	var all []models.InfectionCase
	for _, ic := range f.cases {
		if sc.Matches(ic.OrganizationID) {
			all = append(all, *ic)
		}
	}
	return all, len(all), nil
}

func (f *fakeStore) UpdateCase(_ context.Context, ic *models.InfectionCase) error {
	cp := *ic
	f.cases[ic.ID] = &cp
	return nil
}

func (f *fakeStore) SetCaseStatus(_ context.Context, id uuid.UUID, status string) (*models.InfectionCase, error) {
	ic := f.cases[id]
	ic.Status = status
	switch status {
	case models.InfectionStatusConfirmed:
		if ic.ConfirmedAt == nil {
			now := time.Now()
			ic.ConfirmedAt = &now
		}
	case models.InfectionStatusResolved:
		if ic.ResolvedAt == nil {
			now := time.Now()
			ic.ResolvedAt = &now
		}
	}
	cp := *ic
	return &cp, nil
}

func (f *fakeStore) CreateAudit(_ context.Context, a *models.HandHygieneAudit) error {
	a.ID = uuid.New()
	f.audits = append(f.audits, *a)
	return nil
}

func (f *fakeStore) ListAudits(_ context.Context, sc scope.Scope, _ string, _ scope.ListParams) ([]models.HandHygieneAudit, int, error) {
	var out []models.HandHygieneAudit
	for _, a := range f.audits {
		if sc.Matches(a.OrganizationID) {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func newRouter(store Store, sc scope.Scope) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uuid.New())
		c.Set(middleware.ContextUserRole, "staff")
		c.Set(middleware.ContextScope, sc)
	})
	r.POST("/infection/cases", h.CreateCase)
	r.GET("/infection/cases", h.ListCases)
	r.GET("/infection/cases/:id", h.GetCase)
	r.PATCH("/infection/cases/:id", h.UpdateCase)
	r.POST("/infection/cases/:id/confirm", h.Confirm)
	r.POST("/infection/cases/:id/monitor", h.Monitor)
	r.POST("/infection/cases/:id/resolve", h.Resolve)
	r.POST("/infection/audits", h.CreateAudit)
	r.GET("/infection/audits", h.ListAudits)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func casePayload() map[string]interface{} {
	return map[string]interface{}{
		"patient_name":   "Ramesh Kumar",
		"ward":           "ICU-2",
		"infection_type": "CLABSI",
		"organism":       "S. aureus",
		"onset_date":     "2025-08-28T00:00:00Z",
	}
}

func TestCreateCase_SystemFields(t *testing.T) {
	orgID := uuid.New()
	r := newRouter(newFakeStore(), scope.ForOrganization(orgID))

	w, out := doJSON(t, r, "POST", "/infection/cases", casePayload())
	assert.Equal(t, http.StatusCreated, w.Code)

	data := out["data"].(map[string]interface{})
	assert.Equal(t, "suspected", data["status"])
	assert.Equal(t, orgID.String(), data["organization_id"])
	ref := data["reference_number"].(string)
	assert.True(t, strings.HasPrefix(ref, "IC-"), "reference %q should carry the IC prefix", ref)
}

func TestCaseTransitions_FollowTable(t *testing.T) {
	store := newFakeStore()
	r := newRouter(store, scope.ForOrganization(uuid.New()))

	_, created := doJSON(t, r, "POST", "/infection/cases", casePayload())
	id := created["data"].(map[string]interface{})["id"].(string)

	// suspected cannot jump straight to resolved
	w, _ := doJSON(t, r, "POST", "/infection/cases/"+id+"/resolve", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out := doJSON(t, r, "POST", "/infection/cases/"+id+"/confirm", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "confirmed", out["data"].(map[string]interface{})["status"])
	assert.NotNil(t, out["data"].(map[string]interface{})["confirmed_at"])

	w, out = doJSON(t, r, "POST", "/infection/cases/"+id+"/monitor", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "monitoring", out["data"].(map[string]interface{})["status"])

	w, out = doJSON(t, r, "POST", "/infection/cases/"+id+"/resolve", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "resolved", out["data"].(map[string]interface{})["status"])

	// resolved is terminal
	w, _ = doJSON(t, r, "POST", "/infection/cases/"+id+"/monitor", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmedCanResolveDirectly(t *testing.T) {
	store := newFakeStore()
	r := newRouter(store, scope.ForOrganization(uuid.New()))

	_, created := doJSON(t, r, "POST", "/infection/cases", casePayload())
	id := created["data"].(map[string]interface{})["id"].(string)

	doJSON(t, r, "POST", "/infection/cases/"+id+"/confirm", nil)
	w, out := doJSON(t, r, "POST", "/infection/cases/"+id+"/resolve", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "resolved", out["data"].(map[string]interface{})["status"])
}

func TestGetCase_StoreFailureIsInternal(t *testing.T) {
	store := newFakeStore()
	r := newRouter(store, scope.ForOrganization(uuid.New()))

	_, created := doJSON(t, r, "POST", "/infection/cases", casePayload())
	id := created["data"].(map[string]interface{})["id"].(string)

	// an infrastructure failure must not read as a missing case
	store.getErr = errors.New("connection refused")
	w, out := doJSON(t, r, "GET", "/infection/cases/"+id, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, out["success"])
}

func TestUpdateCase_ResolvedLocked(t *testing.T) {
	store := newFakeStore()
	r := newRouter(store, scope.ForOrganization(uuid.New()))

	_, created := doJSON(t, r, "POST", "/infection/cases", casePayload())
	idStr := created["data"].(map[string]interface{})["id"].(string)
	store.cases[uuid.MustParse(idStr)].Status = models.InfectionStatusResolved

	w, _ := doJSON(t, r, "PATCH", "/infection/cases/"+idStr, map[string]interface{}{"ward": "ICU-3"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ICU-2", store.cases[uuid.MustParse(idStr)].Ward)
}

func TestCreateAudit_DerivesComplianceRate(t *testing.T) {
	orgID := uuid.New()
	store := newFakeStore()
	r := newRouter(store, scope.ForOrganization(orgID))

	w, out := doJSON(t, r, "POST", "/infection/audits", map[string]interface{}{
		"ward":                   "ICU-2",
		"audit_date":             "2025-08-30T00:00:00Z",
		"opportunities_observed": 10,
		"compliant_actions":      7,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(70), out["data"].(map[string]interface{})["compliance_rate"])
}

func TestCreateAudit_ZeroOpportunities(t *testing.T) {
	r := newRouter(newFakeStore(), scope.ForOrganization(uuid.New()))

	w, out := doJSON(t, r, "POST", "/infection/audits", map[string]interface{}{
		"ward":                   "Ward-A",
		"audit_date":             "2025-08-30T00:00:00Z",
		"opportunities_observed": 0,
		"compliant_actions":      0,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(0), out["data"].(map[string]interface{})["compliance_rate"])
}

func TestCreateAudit_CompliantExceedsObserved(t *testing.T) {
	r := newRouter(newFakeStore(), scope.ForOrganization(uuid.New()))

	w, _ := doJSON(t, r, "POST", "/infection/audits", map[string]interface{}{
		"ward":                   "Ward-A",
		"audit_date":             "2025-08-30T00:00:00Z",
		"opportunities_observed": 5,
		"compliant_actions":      6,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
