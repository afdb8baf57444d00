package adapters

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakapp/server/internal/storage"
)

func testContext(t *testing.T, authorization string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if authorization != "" {
		c.Request.Header.Set("Authorization", authorization)
	}
	return c
}

func TestTokenRoundTrip(t *testing.T) {
	h := &AuthHandler{Secret: "test-secret"}

	token, err := h.signToken(42, storage.RoleAdmin)
	require.NoError(t, err)

	claims, err := h.parseToken(testContext(t, "Bearer "+token))
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, storage.RoleAdmin, claims.Role)
}

func TestParseTokenRejectsMissingHeader(t *testing.T) {
	h := &AuthHandler{Secret: "test-secret"}
	_, err := h.parseToken(testContext(t, ""))
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	signer := &AuthHandler{Secret: "one"}
	token, err := signer.signToken(1, storage.RoleUser)
	require.NoError(t, err)

	verifier := &AuthHandler{Secret: "two"}
	_, err = verifier.parseToken(testContext(t, "Bearer "+token))
	assert.Error(t, err)
}

func TestHandlersReportDatabaseUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &AuthHandler{Secret: "test-secret"} // no repositories wired

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	h.Login(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
