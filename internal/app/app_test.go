package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bsrBe/Vent/internal/config"
	"github.com/bsrBe/Vent/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:      "development",
		APIPrefix:        "/api/v1",
		JWTAccessSecret:  "access-secret",
		JWTRefreshSecret: "refresh-secret",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		ResetTokenTTL:    10 * time.Minute,
		FrontendURL:      "http://localhost:3000",
		AllowedOrigins:   []string{"http://localhost:3000"},
	}
}

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newClient(t *testing.T) *client {
	t.Helper()
	a := New(testConfig(), logger.Discard(), Backends{})
	require.NoError(t, a.Catalog.Seed(context.Background()))
	return &client{t: t, handler: a.Handler}
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "data object missing in %v", body)
	return d
}

func list(t *testing.T, body map[string]interface{}) []interface{} {
	t.Helper()
	d, ok := body["data"].([]interface{})
	require.True(t, ok, "data list missing in %v", body)
	return d
}

func TestJournalEndToEnd(t *testing.T) {
	c := newClient(t)

	status, body := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "Password123!",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "success", body["status"])

	status, body = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "a@x.com", "password": "Password123!",
	})
	require.Equal(t, http.StatusOK, status, body)
	c.token = data(t, body)["accessToken"].(string)

	status, body = c.do(http.MethodGet, "/api/v1/moods/types", nil)
	require.Equal(t, http.StatusOK, status, body)
	var happy string
	for _, raw := range data(t, body)["moodTypes"].([]interface{}) {
		mt := raw.(map[string]interface{})
		if mt["name"] == "happy" {
			happy = mt["id"].(string)
		}
	}
	require.NotEmpty(t, happy)

	status, body = c.do(http.MethodPost, "/api/v1/entries", map[string]string{
		"title": "T", "content": "C", "category": "WORK", "moodTypeId": happy,
	})
	require.Equal(t, http.StatusCreated, status, body)
	entryID := data(t, body)["entry"].(map[string]interface{})["id"].(string)

	status, body = c.do(http.MethodGet, "/api/v1/entries", nil)
	require.Equal(t, http.StatusOK, status, body)
	entries := list(t, body)
	require.Len(t, entries, 1)
	mood := entries[0].(map[string]interface{})["mood"].(map[string]interface{})
	assert.Equal(t, "happy", mood["moodType"].(map[string]interface{})["name"])
	assert.Equal(t, entryID, mood["journalEntry"])
	assert.EqualValues(t, 1, body["pagination"].(map[string]interface{})["total"])

	status, _ = c.do(http.MethodDelete, "/api/v1/entries/"+entryID, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body = c.do(http.MethodGet, "/api/v1/entries", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Empty(t, list(t, body))

	status, body = c.do(http.MethodGet, "/api/v1/entries?withDeleted", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, list(t, body), 1)

	status, body = c.do(http.MethodPatch, "/api/v1/entries/"+entryID+"/restore", nil)
	require.Equal(t, http.StatusOK, status, body)
	status, body = c.do(http.MethodGet, "/api/v1/entries", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, list(t, body), 1)
}

func TestRefreshRotationOverHTTP(t *testing.T) {
	c := newClient(t)
	status, body := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "Password123!",
	})
	require.Equal(t, http.StatusCreated, status, body)
	rt1 := data(t, body)["refreshToken"].(string)

	status, body = c.do(http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refreshToken": rt1})
	require.Equal(t, http.StatusOK, status, body)
	assert.NotEqual(t, rt1, data(t, body)["refreshToken"])

	status, body = c.do(http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refreshToken": rt1})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "InvalidOrExpiredToken", body["code"])
}

func TestForgotPasswordSameResponseForUnknownEmail(t *testing.T) {
	c := newClient(t)
	status, _ := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "Password123!",
	})
	require.Equal(t, http.StatusCreated, status)

	knownStatus, known := c.do(http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": "a@x.com"})
	unknownStatus, unknown := c.do(http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": "nobody@x.com"})

	assert.Equal(t, http.StatusOK, knownStatus)
	assert.Equal(t, knownStatus, unknownStatus)
	assert.Equal(t, known, unknown)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	c := newClient(t)

	status, body := c.do(http.MethodGet, "/api/v1/entries", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthenticated", body["code"])

	c.token = "garbage"
	status, body = c.do(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "InvalidToken", body["code"])
}

func TestQueryOperatorsRejected(t *testing.T) {
	c := newClient(t)
	status, body := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name": "A", "email": "a@x.com", "password": "Password123!",
	})
	require.Equal(t, http.StatusCreated, status)
	c.token = data(t, body)["accessToken"].(string)

	status, body = c.do(http.MethodGet, "/api/v1/entries?category[$ne]=WORK", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["details"], "category[$ne]")

	status, _ = c.do(http.MethodGet, "/api/v1/search", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = c.do(http.MethodGet, "/api/v1/entries?page=9223372036854775807&limit=100", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["details"], "page")
}

func TestUnknownRouteAndHealth(t *testing.T) {
	c := newClient(t)

	status, body := c.do(http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "fail", body["status"])

	status, body = c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}
