package models

import "time"

// ServerType selects the Kiwoom environment.
type ServerType string

const (
	ServerMock ServerType = "mock"
	ServerReal ServerType = "real"
)

// -----------------------------------------------------------------------------
// Session state (one per process)
// -----------------------------------------------------------------------------

// MSession is replaced as a whole on every change, never patched.
type MSession struct {
	Authenticated bool       `json:"authenticated"`
	AccessToken   string     `json:"-"`
	TokenExpiry   time.Time  `json:"token_expiry"`
	IssuedAt      time.Time  `json:"issued_at"`
	ServerType    ServerType `json:"server_type"`
}

// ValidAt reports whether the session may be used at t, treating the last
// buffer before expiry as already expired.
func (s *MSession) ValidAt(t time.Time, buffer time.Duration) bool {
	if s == nil || !s.Authenticated || s.AccessToken == "" {
		return false
	}
	return t.Before(s.TokenExpiry.Add(-buffer))
}

// MToken is what the broker returns from the OAuth token endpoint.
type MToken struct {
	AccessToken string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	IssuedAt    time.Time `json:"issued_at"`
}

// MServerInfo describes the configured broker environment for the UI.
type MServerInfo struct {
	ServerType ServerType `json:"server_type"`
	ServerName string     `json:"server_name"`
	Color      string     `json:"server_color"`
	Domain     string     `json:"domain"`
}

// -----------------------------------------------------------------------------
// Gate results
// -----------------------------------------------------------------------------

type MAuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type MAuthStatus struct {
	Authenticated    bool        `json:"authenticated"`
	ServerInfo       MServerInfo `json:"server_info"`
	ExpiresAt        *time.Time  `json:"expires_at,omitempty"`
	ExpiresInSeconds int64       `json:"expires_in_seconds"`
}
