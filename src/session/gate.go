package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/interfaces"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// Gate
// -----------------------------------------------------------------------------

// Gate holds the single process-wide broker session. The session value is
// immutable; every change stores a new one.
type Gate struct {
	Logger *logger.Logger

	auth        interfaces.IAuthenticator
	cache       interfaces.ITokenCache
	serverType  models.ServerType
	buffer      time.Duration
	checkServer bool

	current   atomic.Pointer[models.MSession]
	refreshMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []func(models.MSession)

	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewGate(cfg *models.MBrokerConfig, auth interfaces.IAuthenticator, cache interfaces.ITokenCache, log *logger.Logger) *Gate {
	g := &Gate{
		Logger:      log,
		auth:        auth,
		cache:       cache,
		serverType:  models.ServerType(cfg.ServerType),
		buffer:      time.Duration(cfg.TokenExpireBuffer) * time.Second,
		checkServer: cfg.CheckServerOnLogin,
		now:         time.Now,
	}
	g.current.Store(g.signedOut())
	return g
}

// -----------------------------------------------------------------------------

func (g *Gate) signedOut() *models.MSession {
	return &models.MSession{ServerType: g.serverType}
}

// -----------------------------------------------------------------------------

// OnChange registers fn to receive every new session value. fn runs on the
// caller's goroutine and must not block.
func (g *Gate) OnChange(fn func(models.MSession)) {
	g.listenersMu.Lock()
	g.listeners = append(g.listeners, fn)
	g.listenersMu.Unlock()
}

// -----------------------------------------------------------------------------

func (g *Gate) store(s *models.MSession) {
	g.current.Store(s)

	g.listenersMu.RLock()
	listeners := append([]func(models.MSession){}, g.listeners...)
	g.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(*s)
	}
}

// -----------------------------------------------------------------------------

func (g *Gate) fromToken(tok *models.MToken) *models.MSession {
	issued := tok.IssuedAt
	if issued.IsZero() {
		issued = g.now()
	}
	return &models.MSession{
		Authenticated: true,
		AccessToken:   tok.AccessToken,
		TokenExpiry:   tok.ExpiresAt,
		IssuedAt:      issued,
		ServerType:    g.serverType,
	}
}

// -----------------------------------------------------------------------------
// Login / Logout
// -----------------------------------------------------------------------------

// Login issues a new token and replaces any prior session. On failure the
// session is left unauthenticated.
func (g *Gate) Login(ctx context.Context) models.MAuthResult {
	g.refreshMu.Lock()
	defer g.refreshMu.Unlock()

	if g.checkServer {
		if err := g.auth.CheckServer(ctx); err != nil {
			g.Logger.Warning("login aborted, health check failed: %v", err)
			g.store(g.signedOut())
			return models.MAuthResult{Success: false, Message: helpers.PublicMessage(err)}
		}
	}

	tok, err := g.auth.IssueToken(ctx)
	if err != nil {
		g.Logger.Error("login failed: %v", err)
		g.store(g.signedOut())
		return models.MAuthResult{Success: false, Message: "Login failed: " + helpers.PublicMessage(err)}
	}

	g.store(g.fromToken(tok))
	g.saveCache(tok)

	g.Logger.Info("logged in to the %s server", g.serverType)
	return models.MAuthResult{Success: true, Message: "Logged in to the " + g.auth.ServerInfo().ServerName + " server"}
}

// -----------------------------------------------------------------------------

// Logout always ends with no session, whatever the broker answers.
func (g *Gate) Logout(ctx context.Context) models.MAuthResult {
	g.refreshMu.Lock()
	defer g.refreshMu.Unlock()

	prev := g.current.Load()
	if prev.AccessToken != "" {
		if err := g.auth.RevokeToken(ctx, prev.AccessToken); err != nil {
			g.Logger.Warning("token revocation failed, clearing the session anyway: %v", err)
		}
	}
	if g.cache != nil {
		if err := g.cache.Clear(); err != nil {
			g.Logger.Warning("%v", err)
		}
	}

	if prev.Authenticated || prev.AccessToken != "" {
		g.store(g.signedOut())
		g.Logger.Info("logged out")
	}
	return models.MAuthResult{Success: true, Message: "Logged out"}
}

// -----------------------------------------------------------------------------

// Restore adopts a still-valid cached token, if any.
func (g *Gate) Restore() bool {
	if g.cache == nil {
		return false
	}
	tok, err := g.cache.Load()
	if err != nil {
		g.Logger.Warning("ignoring token cache: %v", err)
		return false
	}
	if tok == nil {
		return false
	}

	g.refreshMu.Lock()
	defer g.refreshMu.Unlock()
	g.store(g.fromToken(tok))
	g.Logger.Info("restored cached token, expires %s", tok.ExpiresAt.Format(time.RFC3339))
	return true
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// Status reads the session without side effects. An expired token reports
// unauthenticated.
func (g *Gate) Status() models.MAuthStatus {
	s := g.current.Load()
	now := g.now()

	st := models.MAuthStatus{
		Authenticated: s.Authenticated && now.Before(s.TokenExpiry),
		ServerInfo:    g.auth.ServerInfo(),
	}
	if st.Authenticated {
		expiry := s.TokenExpiry
		st.ExpiresAt = &expiry
		st.ExpiresInSeconds = int64(expiry.Sub(now) / time.Second)
	}
	return st
}

// -----------------------------------------------------------------------------

func (g *Gate) IsAuthenticated() bool {
	return g.Status().Authenticated
}

// -----------------------------------------------------------------------------

func (g *Gate) Session() models.MSession {
	return *g.current.Load()
}

// -----------------------------------------------------------------------------
// Authorization
// -----------------------------------------------------------------------------

// Authorize guards protected operations. A token inside the expiry buffer is
// renewed once; if that fails the session is cleared.
func (g *Gate) Authorize(ctx context.Context) error {
	_, err := g.Token(ctx)
	return err
}

// -----------------------------------------------------------------------------

// Token returns a usable access token.
func (g *Gate) Token(ctx context.Context) (string, error) {
	s := g.current.Load()
	if !s.Authenticated {
		return "", helpers.NewAuthError("Login required", nil)
	}
	if s.ValidAt(g.now(), g.buffer) {
		return s.AccessToken, nil
	}
	return g.Refresh(ctx, s.AccessToken)
}

// -----------------------------------------------------------------------------

// Refresh issues a new token unless another caller already replaced stale.
// Concurrent callers share one issuance.
func (g *Gate) Refresh(ctx context.Context, stale string) (string, error) {
	g.refreshMu.Lock()
	defer g.refreshMu.Unlock()

	cur := g.current.Load()
	if !cur.Authenticated {
		return "", helpers.NewAuthError("Login required", nil)
	}
	if cur.AccessToken != stale && cur.ValidAt(g.now(), g.buffer) {
		return cur.AccessToken, nil
	}

	g.Logger.Info("renewing access token")
	tok, err := g.auth.IssueToken(ctx)
	if err != nil {
		g.Logger.Error("token renewal failed, clearing session: %v", err)
		g.store(g.signedOut())
		if g.cache != nil {
			_ = g.cache.Clear()
		}
		return "", helpers.NewAuthError("Session expired, please log in again", err)
	}

	g.store(g.fromToken(tok))
	g.saveCache(tok)
	return tok.AccessToken, nil
}

// -----------------------------------------------------------------------------

// Invalidate signs out when the broker rejected a freshly issued token. It is
// a no-op if the session already moved past stale.
func (g *Gate) Invalidate(stale string) {
	g.refreshMu.Lock()
	defer g.refreshMu.Unlock()

	cur := g.current.Load()
	if !cur.Authenticated || cur.AccessToken != stale {
		return
	}
	g.Logger.Warning("broker rejected the renewed token, clearing session")
	g.store(g.signedOut())
	if g.cache != nil {
		_ = g.cache.Clear()
	}
}

// -----------------------------------------------------------------------------

func (g *Gate) saveCache(tok *models.MToken) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Save(tok); err != nil {
		g.Logger.Warning("could not write token cache: %v", err)
	}
}

// -----------------------------------------------------------------------------

// ServerInfo describes the configured broker server.
func (g *Gate) ServerInfo() models.MServerInfo {
	return g.auth.ServerInfo()
}
