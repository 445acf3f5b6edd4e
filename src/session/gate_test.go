package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/interfaces"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

type fakeAuth struct {
	mu        sync.Mutex
	issued    int
	revoked   []string
	issueErr  error
	revokeErr error
	healthErr error
	expiresAt time.Time
	delay     time.Duration
}

func (f *fakeAuth) IssueToken(ctx context.Context) (*models.MToken, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	f.issued++
	return &models.MToken{
		AccessToken: "tok-" + string(rune('0'+f.issued)),
		ExpiresAt:   f.expiresAt,
	}, nil
}

func (f *fakeAuth) RevokeToken(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

func (f *fakeAuth) CheckServer(ctx context.Context) error {
	return f.healthErr
}

func (f *fakeAuth) ServerInfo() models.MServerInfo {
	return models.MServerInfo{ServerType: models.ServerMock, ServerName: "Mock Trading", Color: "#4CAF50"}
}

func (f *fakeAuth) issueCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issued
}

type memCache struct {
	token   *models.MToken
	cleared int
}

func (m *memCache) Load() (*models.MToken, error) { return m.token, nil }
func (m *memCache) Save(t *models.MToken) error   { m.token = t; return nil }
func (m *memCache) Clear() error                  { m.token = nil; m.cleared++; return nil }

// -----------------------------------------------------------------------------

var t0 = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestGate(auth *fakeAuth, cache interfaces.ITokenCache) (*Gate, *time.Time) {
	cfg := &models.MBrokerConfig{ServerType: "mock", TokenExpireBuffer: 300, CheckServerOnLogin: true}
	g := NewGate(cfg, auth, cache, logger.NewNopLogger("test"))
	now := t0
	g.now = func() time.Time { return now }
	return g, &now
}

// -----------------------------------------------------------------------------

func TestLoginStatusLogout(t *testing.T) {
	auth := &fakeAuth{expiresAt: t0.Add(24 * time.Hour)}
	cache := &memCache{}
	g, _ := newTestGate(auth, cache)

	assert.False(t, g.Status().Authenticated)
	assert.True(t, helpers.IsAuthError(g.Authorize(context.Background())))

	res := g.Login(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, "Logged in to the Mock Trading server", res.Message)

	st := g.Status()
	assert.True(t, st.Authenticated)
	require.NotNil(t, st.ExpiresAt)
	assert.Equal(t, int64(24*60*60), st.ExpiresInSeconds)
	assert.Equal(t, "Mock Trading", st.ServerInfo.ServerName)
	assert.NotNil(t, cache.token)
	assert.NoError(t, g.Authorize(context.Background()))

	out := g.Logout(context.Background())
	assert.True(t, out.Success)
	assert.False(t, g.Status().Authenticated)
	assert.Nil(t, g.Status().ExpiresAt)
	assert.Equal(t, []string{"tok-1"}, auth.revoked)
	assert.Nil(t, cache.token)
}

func TestLoginFailureLeavesSignedOut(t *testing.T) {
	auth := &fakeAuth{issueErr: helpers.NewUpstreamError("1512", "")}
	g, _ := newTestGate(auth, &memCache{})

	res := g.Login(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Login failed")
	assert.Contains(t, res.Message, "Invalid account number")
	assert.False(t, g.Status().Authenticated)
}

func TestLoginAbortsWhenServerUnhealthy(t *testing.T) {
	auth := &fakeAuth{healthErr: helpers.NewTransportError("the broker server is under maintenance (HTTP 503)", nil)}
	g, _ := newTestGate(auth, nil)

	res := g.Login(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "maintenance")
	assert.Equal(t, 0, auth.issueCount())
}

func TestLogoutIsIdempotent(t *testing.T) {
	auth := &fakeAuth{expiresAt: t0.Add(time.Hour), revokeErr: errors.New("boom")}
	g, _ := newTestGate(auth, &memCache{})

	require.True(t, g.Login(context.Background()).Success)
	assert.True(t, g.Logout(context.Background()).Success)
	assert.True(t, g.Logout(context.Background()).Success)
	assert.False(t, g.Status().Authenticated)
	assert.Len(t, auth.revoked, 1)
}

func TestStatusReportsExpiredTokenAsSignedOut(t *testing.T) {
	auth := &fakeAuth{expiresAt: t0.Add(time.Hour)}
	g, now := newTestGate(auth, nil)
	require.True(t, g.Login(context.Background()).Success)

	*now = t0.Add(2 * time.Hour)
	assert.False(t, g.Status().Authenticated)
	assert.Equal(t, 1, auth.issueCount())
}

func TestTokenNearExpiryRefreshesOnce(t *testing.T) {
	auth := &fakeAuth{expiresAt: t0.Add(10 * time.Minute)}
	g, now := newTestGate(auth, &memCache{})
	require.True(t, g.Login(context.Background()).Success)

	// inside the 300s buffer
	*now = t0.Add(6 * time.Minute)
	auth.mu.Lock()
	auth.expiresAt = t0.Add(24 * time.Hour)
	auth.mu.Unlock()

	tok, err := g.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)

	tok, err = g.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, 2, auth.issueCount())
}

func TestRefreshFailureClearsSession(t *testing.T) {
	auth := &fakeAuth{expiresAt: t0.Add(time.Hour)}
	cache := &memCache{}
	g, _ := newTestGate(auth, cache)
	require.True(t, g.Login(context.Background()).Success)

	auth.mu.Lock()
	auth.issueErr = helpers.NewTransportError("down", nil)
	auth.mu.Unlock()

	_, err := g.Refresh(context.Background(), "tok-1")
	require.Error(t, err)
	assert.True(t, helpers.IsAuthError(err))
	assert.False(t, g.Status().Authenticated)
	assert.Nil(t, cache.token)
}

func TestInvalidateDropsOnlyMatchingToken(t *testing.T) {
	auth := &fakeAuth{expiresAt: t0.Add(time.Hour)}
	cache := &memCache{}
	g, _ := newTestGate(auth, cache)
	require.True(t, g.Login(context.Background()).Success)

	g.Invalidate("tok-other")
	assert.True(t, g.Status().Authenticated)
	assert.Equal(t, 0, cache.cleared)

	g.Invalidate("tok-1")
	assert.False(t, g.Status().Authenticated)
	assert.Nil(t, cache.token)
	assert.Equal(t, 1, cache.cleared)

	_, err := g.Token(context.Background())
	assert.True(t, helpers.IsAuthError(err))
}

func TestConcurrentRefreshIssuesOnce(t *testing.T) {
	auth := &fakeAuth{expiresAt: t0.Add(time.Hour)}
	g, _ := newTestGate(auth, nil)
	require.True(t, g.Login(context.Background()).Success)
	auth.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := g.Refresh(context.Background(), "tok-1")
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, auth.issueCount())
	for _, tok := range tokens {
		assert.Equal(t, "tok-2", tok)
	}
}

func TestRestoreAndListeners(t *testing.T) {
	cache := &memCache{token: &models.MToken{AccessToken: "cached", ExpiresAt: t0.Add(time.Hour)}}
	g, _ := newTestGate(&fakeAuth{}, cache)

	var seen []bool
	g.OnChange(func(s models.MSession) { seen = append(seen, s.Authenticated) })

	assert.True(t, g.Restore())
	tok, err := g.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", tok)

	g.Logout(context.Background())
	assert.Equal(t, []bool{true, false}, seen)
}
