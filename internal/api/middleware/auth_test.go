package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stockpulse/stockpulse/internal/api/middleware"
	"github.com/stockpulse/stockpulse/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return middleware.RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		require.NotNil(t, claims)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(claims.UserID + "/" + claims.CompanyID))
	}))
}

func TestRequireAuth_ValidToken(t *testing.T) {
	token, err := auth.IssueAccessToken("u-1", "user@acme.test", []string{"admin"},
		"c-1", testSecret, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedEcho(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1/c-1", rec.Body.String())
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	protectedEcho(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_token")
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	token, err := auth.IssueAccessToken("u-1", "user@acme.test", nil,
		"c-1", testSecret, -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedEcho(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_token")
}

func TestRequireAuth_WrongSigningKey(t *testing.T) {
	token, err := auth.IssueAccessToken("u-1", "user@acme.test", nil,
		"c-1", "other-secret", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedEcho(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireService(t *testing.T) {
	ok := false
	h := middleware.RequireService("svc-token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Authorization", "Bearer svc-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.True(t, ok)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireService_Mismatch(t *testing.T) {
	h := middleware.RequireService("svc-token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireService_UnconfiguredDisablesRoute(t *testing.T) {
	h := middleware.RequireService("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_configured")
}

func TestCORS(t *testing.T) {
	h := middleware.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// Preflight never reaches the wrapped handler.
	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}
