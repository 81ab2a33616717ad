package handler_test

import (
	"net/http"
	"testing"

	"github.com/stockpulse/stockpulse/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func createUser(t *testing.T, gdb *gorm.DB, email, password, companyID string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := model.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: string(hash),
		Roles:        model.StringSlice{"admin"},
	}
	if companyID != "" {
		u.CompanyID = &companyID
	}
	require.NoError(t, gdb.Create(&u).Error)
}

func tokenAttrsFrom(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	attrs, ok := data["attributes"].(map[string]any)
	require.True(t, ok)
	return attrs
}

func TestLogin(t *testing.T) {
	srv, gdb := newTestServer(t, &fakeSender{})
	createUser(t, gdb, "user@acme.test", "hunter22", "c-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "",
		map[string]any{"email": "user@acme.test", "password": "hunter22"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	attrs := tokenAttrsFrom(t, resp)
	assert.NotEmpty(t, attrs["access_token"])
	assert.NotEmpty(t, attrs["refresh_token"])
	assert.Equal(t, "Bearer", attrs["token_type"])
}

func TestLogin_WrongPassword(t *testing.T) {
	srv, gdb := newTestServer(t, &fakeSender{})
	createUser(t, gdb, "user@acme.test", "hunter22", "c-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "",
		map[string]any{"email": "user@acme.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_UnknownUser(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSender{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "",
		map[string]any{"email": "nobody@acme.test", "password": "pw"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_MissingFields(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSender{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "",
		map[string]any{"email": "user@acme.test"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRefreshRotatesToken(t *testing.T) {
	srv, gdb := newTestServer(t, &fakeSender{})
	createUser(t, gdb, "user@acme.test", "hunter22", "c-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "",
		map[string]any{"email": "user@acme.test", "password": "hunter22"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := tokenAttrsFrom(t, resp)["refresh_token"].(string)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/refresh", "",
		map[string]any{"refresh_token": first})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := tokenAttrsFrom(t, resp)["refresh_token"].(string)
	assert.NotEqual(t, first, second)

	// The first token was revoked by the rotation.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/refresh", "",
		map[string]any{"refresh_token": first})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	srv, gdb := newTestServer(t, &fakeSender{})
	createUser(t, gdb, "user@acme.test", "hunter22", "c-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "",
		map[string]any{"email": "user@acme.test", "password": "hunter22"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	attrs := tokenAttrsFrom(t, resp)
	access := attrs["access_token"].(string)
	refresh := attrs["refresh_token"].(string)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/logout", access,
		map[string]any{"refresh_token": refresh})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/refresh", "",
		map[string]any{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
