package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthValidToken(t *testing.T) {
	var gotTenant, gotUser string
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = GetTenantID(r.Context())
		gotUser = GetUserID(r.Context())
	}))

	token := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "widget-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TenantID: "tenant-1",
	}, testSecret)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, authedRequest(token))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "tenant-1", gotTenant)
	assert.Equal(t, "widget-1", gotUser)
}

func TestAuthMissingHeader(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, authedRequest(""))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthWrongSecret(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	token := signToken(t, Claims{TenantID: "tenant-1"}, "other-secret")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, authedRequest(token))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthRejectsMissingTenant(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	// A structurally valid token without a tenant cannot scope queries.
	token := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "widget-1"},
	}, testSecret)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, authedRequest(token))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthExpiredToken(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	token := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		TenantID: "tenant-1",
	}, testSecret)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, authedRequest(token))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireScope(t *testing.T) {
	token := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"},
		TenantID:         "tenant-1",
		Scopes:           []string{"leads:read"},
	}, testSecret)

	reached := false
	handler := Auth(testSecret)(RequireScope("leads:read")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, authedRequest(token))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, reached)

	denied := Auth(testSecret)(RequireScope("leads:write")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})))

	rr = httptest.NewRecorder()
	denied.ServeHTTP(rr, authedRequest(token))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
