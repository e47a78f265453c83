package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintenance-backend/internal/model"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string, role model.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, authClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newAuthRouter(roles ...model.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{Auth(testSecret)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserID(c), "role": Role(c)})
	})
	r.GET("/protected", handlers...)
	return r
}

func doGet(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingHeader(t *testing.T) {
	w := doGet(newAuthRouter(), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_InvalidToken(t *testing.T) {
	w := doGet(newAuthRouter(), "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_WrongSecret(t *testing.T) {
	token := signToken(t, "other-secret", "u1", model.RoleUser)
	w := doGet(newAuthRouter(), token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, authClaims{
		Role: string(model.RoleUser),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	w := doGet(newAuthRouter(), signed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_MissingSubject(t *testing.T) {
	token := signToken(t, testSecret, "", model.RoleUser)
	w := doGet(newAuthRouter(), token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ValidToken(t *testing.T) {
	token := signToken(t, testSecret, "u1", model.RoleTechnician)
	w := doGet(newAuthRouter(), token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":"u1"`)
	assert.Contains(t, w.Body.String(), `"role":"TECHNICIAN"`)
}

func TestRequireRoles(t *testing.T) {
	adminOnly := newAuthRouter(model.RoleAdmin)

	w := doGet(adminOnly, signToken(t, testSecret, "u1", model.RoleUser))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doGet(adminOnly, signToken(t, testSecret, "a1", model.RoleAdmin))
	assert.Equal(t, http.StatusOK, w.Code)

	adminOrTech := newAuthRouter(model.RoleAdmin, model.RoleTechnician)
	w = doGet(adminOrTech, signToken(t, testSecret, "t1", model.RoleTechnician))
	assert.Equal(t, http.StatusOK, w.Code)
}
