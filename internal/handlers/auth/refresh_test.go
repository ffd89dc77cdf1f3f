package auth

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charleshuang3/kinderauth/internal/session"
	"github.com/charleshuang3/kinderauth/internal/storage"
)

func TestHandleRefresh_Success(t *testing.T) {
	_, db, router := setupTestProvider(t, nil)
	access1, cookie1 := login(t, router, "parent1")

	rec := doRefresh(t, router, cookie1)
	require.Equal(t, http.StatusOK, rec.Code, "Body: %s", rec.Body.String())

	resp := &tokenResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, access1, resp.AccessToken)

	cookie2 := refreshCookie(t, rec)
	assert.NotEqual(t, cookie1.Value, cookie2.Value)

	old, err := storage.GetRefreshTokenByHash(db, session.HashSecret(cookie1.Value))
	require.NoError(t, err)
	assert.True(t, old.Revoked)

	rec = doBearer(t, router, http.MethodGet, "/api/me", resp.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleRefresh_Error(t *testing.T) {
	tests := []struct {
		name         string
		cookie       func(t *testing.T, p *Provider) *http.Cookie
		expectedKind string
	}{
		{
			name:         "No cookie",
			cookie:       func(t *testing.T, p *Provider) *http.Cookie { return nil },
			expectedKind: kindSessionExpired,
		},
		{
			name: "Unknown secret",
			cookie: func(t *testing.T, p *Provider) *http.Cookie {
				return &http.Cookie{Name: defaultCookieName, Value: "never-issued"}
			},
			expectedKind: kindSessionExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, router := setupTestProvider(t, nil)

			rec := doRefresh(t, router, tt.cookie(t, p))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.expectedKind, errorKind(t, rec))

			cleared := refreshCookie(t, rec)
			assert.Empty(t, cleared.Value)
			assert.Less(t, cleared.MaxAge, 0)
		})
	}
}

func TestHandleRefresh_Replay(t *testing.T) {
	_, _, router := setupTestProvider(t, nil)
	_, cookieA := login(t, router, "parent1")
	_, cookieB := login(t, router, "parent1")

	rec := doRefresh(t, router, cookieA)
	require.Equal(t, http.StatusOK, rec.Code)
	rotatedA := refreshCookie(t, rec)

	rec = doRefresh(t, router, cookieA)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, kindReplayDetected, errorKind(t, rec))

	for _, c := range []*http.Cookie{cookieB, rotatedA} {
		rec = doRefresh(t, router, c)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "every session of the user is burned")
	}
}

func TestHandleRefresh_Expired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	_, _, router := setupTestProvider(t, clock)
	_, cookie := login(t, router, "parent1")

	clock.Advance(24 * time.Hour)

	rec := doRefresh(t, router, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, kindSessionExpired, errorKind(t, rec))
}

func TestHandleRefresh_StoreDown(t *testing.T) {
	_, db, router := setupTestProvider(t, nil)
	_, cookie := login(t, router, "parent1")

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec := doRefresh(t, router, cookie)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, kindServerError, errorKind(t, rec))
}

func TestHandleLogout(t *testing.T) {
	_, db, router := setupTestProvider(t, nil)
	_, cookie := login(t, router, "parent1")
	_, other := login(t, router, "parent1")

	req, err := http.NewRequest(http.MethodPost, "/auth/logout", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	rec := doRequest(router, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Less(t, refreshCookie(t, rec).MaxAge, 0)

	record, err := storage.GetRefreshTokenByHash(db, session.HashSecret(cookie.Value))
	require.NoError(t, err)
	assert.True(t, record.Revoked)

	rec = doRefresh(t, router, other)
	assert.Equal(t, http.StatusOK, rec.Code, "logout only ends the current session")
}

func TestHandleLogout_NoCookie(t *testing.T) {
	_, _, router := setupTestProvider(t, nil)

	req, err := http.NewRequest(http.MethodPost, "/auth/logout", nil)
	require.NoError(t, err)
	rec := doRequest(router, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandleLogoutAll(t *testing.T) {
	_, _, router := setupTestProvider(t, nil)
	access, cookie1 := login(t, router, "parent1")
	_, cookie2 := login(t, router, "parent1")

	rec := doBearer(t, router, http.MethodPost, "/auth/logout-all", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doBearer(t, router, http.MethodPost, "/auth/logout-all", access, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	for _, c := range []*http.Cookie{cookie1, cookie2} {
		rec = doRefresh(t, router, c)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}
