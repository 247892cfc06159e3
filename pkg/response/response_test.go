package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, handler gin.HandlerFunc) map[string]interface{} {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", handler)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var out map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestFailureEnvelope_CarriesMessage(t *testing.T) {
	out := serve(t, func(c *gin.Context) { NotFound(c, "entry not found") })

	assert.Equal(t, false, out["success"])
	assert.Equal(t, "entry not found", out["message"])
	_, hasData := out["data"]
	assert.False(t, hasData)
}

func TestSuccessEnvelope_OmitsMessage(t *testing.T) {
	out := serve(t, func(c *gin.Context) { OK(c, gin.H{"id": "x"}) })

	assert.Equal(t, true, out["success"])
	_, hasMessage := out["message"]
	assert.False(t, hasMessage)
}
