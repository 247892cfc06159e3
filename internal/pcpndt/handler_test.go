package pcpndt

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
	forms  map[uuid.UUID]*models.PCPNDTForm
	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{forms: map[uuid.UUID]*models.PCPNDTForm{}}
}

func (f *fakeStore) Create(_ context.Context, form *models.PCPNDTForm) error {
	form.ID = uuid.New()
	form.CreatedAt = time.Now()
	form.UpdatedAt = form.CreatedAt
	f.forms[form.ID] = form
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID, sc scope.Scope) (*models.PCPNDTForm, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	form, ok := f.forms[id]
	if !ok || !sc.Matches(form.OrganizationID) {
		return nil, pgx.ErrNoRows
	}
	cp := *form
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, sc scope.Scope, filter ListFilter, _ scope.ListParams) ([]models.PCPNDTForm, int, error) {
	var all []models.PCPNDTForm
	for _, form := range f.forms {
		if !sc.Matches(form.OrganizationID) {
			continue
		}
		if filter.Signed != nil && form.DeclarationSigned != *filter.Signed {
			continue
		}
		all = append(all, *form)
	}
	return all, len(all), nil
}

func (f *fakeStore) Update(_ context.Context, form *models.PCPNDTForm) error {
	cp := *form
	f.forms[form.ID] = &cp
	return nil
}

func (f *fakeStore) Sign(_ context.Context, id uuid.UUID, signedBy uuid.UUID) (*models.PCPNDTForm, error) {
	form := f.forms[id]
	form.DeclarationSigned = true
	if form.SignedAt == nil {
		now := time.Now()
		form.SignedAt = &now
		form.SignedByID = &signedBy
	}
	cp := *form
	return &cp, nil
}

func newRouter(store Store, userID uuid.UUID, sc scope.Scope) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserRole, "staff")
		c.Set(middleware.ContextScope, sc)
	})
	r.POST("/pcpndt/forms", h.Create)
	r.GET("/pcpndt/forms", h.List)
	r.GET("/pcpndt/forms/:id", h.GetByID)
	r.PATCH("/pcpndt/forms/:id", h.Update)
	r.POST("/pcpndt/forms/:id/sign", h.Sign)
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

func formPayload() map[string]interface{} {
	return map[string]interface{}{
		"patient_name":   "Kavita Singh",
		"patient_age":    29,
		"husband_name":   "Amit Singh",
		"address":        "14 MG Road, Pune",
		"indication":     "advanced maternal age",
		"procedure_type": "ultrasound",
		"procedure_date": "2025-09-02T09:00:00Z",
	}
}

func TestCreate_AssignsFormNumber(t *testing.T) {
	r := newRouter(newFakeStore(), uuid.New(), scope.ForOrganization(uuid.New()))

	w, out := doJSON(t, r, "POST", "/pcpndt/forms", formPayload())
	assert.Equal(t, http.StatusCreated, w.Code)

	data := out["data"].(map[string]interface{})
	assert.True(t, strings.HasPrefix(data["form_number"].(string), "FF-"))
	assert.Equal(t, false, data["declaration_signed"])
	assert.Nil(t, data["signed_at"])
}

func TestSign_IsIdempotent(t *testing.T) {
	store := newFakeStore()
	signer := uuid.New()
	r := newRouter(store, signer, scope.ForOrganization(uuid.New()))

	_, created := doJSON(t, r, "POST", "/pcpndt/forms", formPayload())
	id := created["data"].(map[string]interface{})["id"].(string)

	w, first := doJSON(t, r, "POST", "/pcpndt/forms/"+id+"/sign", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	firstData := first["data"].(map[string]interface{})
	assert.Equal(t, true, firstData["declaration_signed"])
	assert.Equal(t, signer.String(), firstData["signed_by_id"])
	firstSignedAt := firstData["signed_at"]
	assert.NotNil(t, firstSignedAt)

	// signing again succeeds and keeps the original stamp
	other := newRouter(store, uuid.New(), scope.ForOrganization(store.forms[uuid.MustParse(id)].OrganizationID))
	w, second := doJSON(t, other, "POST", "/pcpndt/forms/"+id+"/sign", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	secondData := second["data"].(map[string]interface{})
	assert.Equal(t, firstSignedAt, secondData["signed_at"])
	assert.Equal(t, signer.String(), secondData["signed_by_id"])
}

func TestGetByID_StoreFailureIsInternal(t *testing.T) {
	store := newFakeStore()
	r := newRouter(store, uuid.New(), scope.ForOrganization(uuid.New()))

	_, created := doJSON(t, r, "POST", "/pcpndt/forms", formPayload())
	id := created["data"].(map[string]interface{})["id"].(string)

	// an infrastructure failure must not read as a missing form
	store.getErr = errors.New("connection refused")
	w, out := doJSON(t, r, "GET", "/pcpndt/forms/"+id, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, out["success"])
}

func TestUpdate_SignedFormLocked(t *testing.T) {
	store := newFakeStore()
	r := newRouter(store, uuid.New(), scope.ForOrganization(uuid.New()))

	_, created := doJSON(t, r, "POST", "/pcpndt/forms", formPayload())
	id := created["data"].(map[string]interface{})["id"].(string)

	doJSON(t, r, "POST", "/pcpndt/forms/"+id+"/sign", nil)

	w, _ := doJSON(t, r, "PATCH", "/pcpndt/forms/"+id, map[string]interface{}{"patient_age": 30})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 29, store.forms[uuid.MustParse(id)].PatientAge)
}

func TestUpdate_UnsignedFormAllowed(t *testing.T) {
	store := newFakeStore()
	r := newRouter(store, uuid.New(), scope.ForOrganization(uuid.New()))

	_, created := doJSON(t, r, "POST", "/pcpndt/forms", formPayload())
	id := created["data"].(map[string]interface{})["id"].(string)

	w, out := doJSON(t, r, "PATCH", "/pcpndt/forms/"+id, map[string]interface{}{"referring_doctor": "Dr. Mehta"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dr. Mehta", out["data"].(map[string]interface{})["referring_doctor"])
	// untouched field kept
	assert.Equal(t, "Kavita Singh", out["data"].(map[string]interface{})["patient_name"])
}

func TestList_SignedFilter(t *testing.T) {
	store := newFakeStore()
	r := newRouter(store, uuid.New(), scope.ForOrganization(uuid.New()))

	_, a := doJSON(t, r, "POST", "/pcpndt/forms", formPayload())
	doJSON(t, r, "POST", "/pcpndt/forms", formPayload())
	doJSON(t, r, "POST", "/pcpndt/forms/"+a["data"].(map[string]interface{})["id"].(string)+"/sign", nil)

	_, out := doJSON(t, r, "GET", "/pcpndt/forms?signed=true", nil)
	assert.Equal(t, float64(1), out["meta"].(map[string]interface{})["total"])
}
