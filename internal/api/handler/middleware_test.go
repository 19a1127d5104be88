package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter(t *testing.T, secret []byte) (*gin.Engine, *string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &Handler{JWTSecret: secret}
	var seenUserID string

	r := gin.New()
	r.GET("/protected", h.JWTMiddleware(), func(c *gin.Context) {
		seenUserID = c.GetString(ctxUserID)
		c.Status(http.StatusOK)
	})
	return r, &seenUserID
}

func TestJWTMiddleware(t *testing.T) {
	secret := []byte("test-secret")
	r, seenUserID := authRouter(t, secret)

	h := &Handler{JWTSecret: secret}
	token, err := h.generateJWT("user-42")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-42", *seenUserID)
}

// A valid token sent without the Bearer scheme is rejected: the header must
// carry the scheme, not a bare token.
func TestJWTMiddleware_MissingBearerScheme(t *testing.T) {
	secret := []byte("test-secret")
	r, seenUserID := authRouter(t, secret)

	h := &Handler{JWTSecret: secret}
	token, err := h.generateJWT("user-42")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, *seenUserID)
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	r, _ := authRouter(t, []byte("test-secret"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddleware_WrongSecret(t *testing.T) {
	r, _ := authRouter(t, []byte("right-secret"))

	forged := &Handler{JWTSecret: []byte("wrong-secret")}
	token, err := forged.generateJWT("user-42")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	r, _ := authRouter(t, secret)

	claims := jwt.MapClaims{
		"user_id": "user-42",
		"exp":     time.Now().Add(-time.Hour).Unix(),
		"iss":     tokenIssuer,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddleware_TokenWithoutUserID(t *testing.T) {
	secret := []byte("test-secret")
	r, _ := authRouter(t, secret)

	claims := jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
		"iss": tokenIssuer,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
