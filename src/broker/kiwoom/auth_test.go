package kiwoom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator(t *testing.T, h http.HandlerFunc) *Authenticator {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAuthenticator(testBrokerConfig(srv.URL), logger.NewNopLogger("test"))
}

// -----------------------------------------------------------------------------

func TestIssueToken(t *testing.T) {
	var got map[string]string
	a := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathToken, r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, map[string]interface{}{
			"token": "abc", "token_type": "bearer", "expires_dt": "20250315090000",
			"return_code": 0, "return_msg": "정상적으로 처리되었습니다",
		})
	})

	tok, err := a.IssueToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.True(t, tok.ExpiresAt.Equal(time.Date(2025, 3, 15, 9, 0, 0, 0, seoul)))
	assert.Equal(t, "client_credentials", got["grant_type"])
	assert.Equal(t, "app", got["appkey"])
	assert.Equal(t, "secret", got["secretkey"])
}

func TestIssueTokenWithoutKeys(t *testing.T) {
	called := false
	a := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	a.server.AppKey = ""

	_, err := a.IssueToken(context.Background())
	assert.True(t, helpers.IsAuthError(err))
	assert.False(t, called)
}

func TestIssueTokenRejected(t *testing.T) {
	a := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"return_code": 3, "return_msg": "[8005:Token이 유효하지 않습니다]"})
	})

	_, err := a.IssueToken(context.Background())
	assert.True(t, helpers.IsTokenError(err))
}

func TestCheckServer(t *testing.T) {
	status := http.StatusOK
	a := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathHealth, r.URL.Path)
		w.WriteHeader(status)
	})

	assert.NoError(t, a.CheckServer(context.Background()))

	status = http.StatusServiceUnavailable
	err := a.CheckServer(context.Background())
	var tErr *helpers.TransportError
	assert.ErrorAs(t, err, &tErr)
}

func TestServerInfoFor(t *testing.T) {
	mock := ServerInfoFor(models.ServerMock, "https://mockapi.kiwoom.com")
	assert.Equal(t, "Mock Trading", mock.ServerName)
	assert.Equal(t, "#4CAF50", mock.Color)

	live := ServerInfoFor(models.ServerReal, "https://api.kiwoom.com")
	assert.Equal(t, "Real Trading", live.ServerName)
	assert.Equal(t, "#F44336", live.Color)
}

// -----------------------------------------------------------------------------
// TokenCache
// -----------------------------------------------------------------------------

func TestTokenCacheRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	tc := NewTokenCache(dir, models.ServerMock, 5*time.Minute)
	tc.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, seoul) }

	missing, err := tc.Load()
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, tc.Save(&models.MToken{
		AccessToken: "abc",
		ExpiresAt:   time.Date(2025, 3, 15, 9, 0, 0, 0, seoul),
		IssuedAt:    time.Date(2025, 3, 14, 9, 0, 0, 0, seoul),
	}))
	assert.Equal(t, filepath.Join(dir, "access_token_mock.json"), tc.Path)

	info, err := os.Stat(tc.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	tok, err := tc.Load()
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "abc", tok.AccessToken)

	require.NoError(t, tc.Clear())
	require.NoError(t, tc.Clear())
	tok, err = tc.Load()
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestTokenCacheIgnoresExpiringToken(t *testing.T) {
	tc := NewTokenCache(t.TempDir(), models.ServerReal, 5*time.Minute)
	tc.now = func() time.Time { return time.Date(2025, 3, 15, 8, 57, 0, 0, seoul) }

	require.NoError(t, tc.Save(&models.MToken{
		AccessToken: "abc",
		ExpiresAt:   time.Date(2025, 3, 15, 9, 0, 0, 0, seoul),
	}))

	tok, err := tc.Load()
	require.NoError(t, err)
	assert.Nil(t, tok)
}
