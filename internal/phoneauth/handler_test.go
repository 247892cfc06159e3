package phoneauth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/medigrid-hms/backend/internal/auth"
	"github.com/medigrid-hms/backend/internal/models"
)

type fakeUsers struct {
	byPhone map[string]*models.User
}

func (f *fakeUsers) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	u, ok := f.byPhone[phone]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeUsers) CreateWithPhone(_ context.Context, phone string) (*models.User, error) {
	u := &models.User{ID: uuid.New(), Phone: phone, Role: models.RoleStaff}
	f.byPhone[phone] = u
	return u, nil
}

type fakeCodes struct {
	codes map[string]string
}

func (f *fakeCodes) Put(_ context.Context, phone, code string) error {
	f.codes[phone] = code
	return nil
}

func (f *fakeCodes) Consume(_ context.Context, phone string) (string, error) {
	code := f.codes[phone]
	delete(f.codes, phone)
	return code, nil
}

type fakeSMS struct {
	configured bool
	sent       []string
}

func (f *fakeSMS) Configured() bool { return f.configured }

func (f *fakeSMS) Send(_ context.Context, phone, _ string) error {
	f.sent = append(f.sent, phone)
	return nil
}

func newRouter(users Users, codes Codes, sms SMSSender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(users, codes, sms, auth.NewJWTService("test-secret", 1), nil)
	r := gin.New()
	r.POST("/auth/phone/request", h.Request)
	r.POST("/auth/phone/verify", h.Verify)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestRequest_UnconfiguredGateway(t *testing.T) {
	r := newRouter(
		&fakeUsers{byPhone: map[string]*models.User{}},
		&fakeCodes{codes: map[string]string{}},
		&fakeSMS{configured: false},
	)

	w, out := doJSON(t, r, "/auth/phone/request", map[string]string{"phone": "+919876543210"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, false, out["success"])
}

func TestRequestAndVerify_CreatesUser(t *testing.T) {
	users := &fakeUsers{byPhone: map[string]*models.User{}}
	codes := &fakeCodes{codes: map[string]string{}}
	sms := &fakeSMS{configured: true}
	r := newRouter(users, codes, sms)

	w, _ := doJSON(t, r, "/auth/phone/request", map[string]string{"phone": "+919876543210"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, sms.sent, 1)

	code := codes.codes["+919876543210"]
	assert.Len(t, code, 6)

	w, out := doJSON(t, r, "/auth/phone/verify", map[string]string{"phone": "+919876543210", "code": code})
	assert.Equal(t, http.StatusOK, w.Code)
	data := out["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])
	assert.NotNil(t, users.byPhone["+919876543210"])
}

func TestVerify_WrongCodeConsumes(t *testing.T) {
	users := &fakeUsers{byPhone: map[string]*models.User{}}
	codes := &fakeCodes{codes: map[string]string{"+919876543210": "123456"}}
	r := newRouter(users, codes, &fakeSMS{configured: true})

	w, _ := doJSON(t, r, "/auth/phone/verify", map[string]string{"phone": "+919876543210", "code": "654321"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the right code no longer works: one attempt per issued code
	w, _ = doJSON(t, r, "/auth/phone/verify", map[string]string{"phone": "+919876543210", "code": "123456"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerify_ExistingUserReused(t *testing.T) {
	existing := &models.User{ID: uuid.New(), Phone: "+911112223334", Role: models.RoleStaff}
	users := &fakeUsers{byPhone: map[string]*models.User{"+911112223334": existing}}
	codes := &fakeCodes{codes: map[string]string{"+911112223334": "111111"}}
	r := newRouter(users, codes, &fakeSMS{configured: true})

	w, out := doJSON(t, r, "/auth/phone/verify", map[string]string{"phone": "+911112223334", "code": "111111"})
	assert.Equal(t, http.StatusOK, w.Code)
	user := out["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, existing.ID.String(), user["id"])
}
