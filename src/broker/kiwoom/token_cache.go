package kiwoom

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"kiwoom-dashboard/src/models"

	"github.com/pkg/errors"
)

// -----------------------------------------------------------------------------
// TokenCache
// -----------------------------------------------------------------------------

// TokenCache keeps the last token of one server type in a JSON file so a
// restart can reuse it.
type TokenCache struct {
	Path   string
	Buffer time.Duration
	now    func() time.Time
}

type cachedToken struct {
	Token     string `json:"token"`
	ExpiresDt string `json:"expires_dt"`
	IssuedAt  string `json:"issued_at"`
}

// -----------------------------------------------------------------------------

func NewTokenCache(dir string, serverType models.ServerType, buffer time.Duration) *TokenCache {
	return &TokenCache{
		Path:   filepath.Join(dir, "access_token_"+string(serverType)+".json"),
		Buffer: buffer,
		now:    time.Now,
	}
}

// -----------------------------------------------------------------------------

// Load returns nil without error when there is no usable token on disk.
func (tc *TokenCache) Load() (*models.MToken, error) {
	data, err := os.ReadFile(tc.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read token cache '%s'", tc.Path)
	}

	var c cachedToken
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "token cache is corrupt")
	}
	if c.Token == "" || c.ExpiresDt == "" {
		return nil, nil
	}

	expires, err := parseTimestamp(c.ExpiresDt)
	if err != nil {
		return nil, errors.Wrap(err, "token cache has a malformed expiry")
	}
	if !tc.now().Before(expires.Add(-tc.Buffer)) {
		return nil, nil
	}

	issued, _ := parseTimestamp(c.IssuedAt)
	return &models.MToken{AccessToken: c.Token, ExpiresAt: expires, IssuedAt: issued}, nil
}

// -----------------------------------------------------------------------------

func (tc *TokenCache) Save(token *models.MToken) error {
	if token == nil {
		return tc.Clear()
	}
	if err := os.MkdirAll(filepath.Dir(tc.Path), 0700); err != nil {
		return errors.Wrap(err, "failed to create token cache directory")
	}

	data, err := json.MarshalIndent(cachedToken{
		Token:     token.AccessToken,
		ExpiresDt: formatTimestamp(token.ExpiresAt),
		IssuedAt:  formatTimestamp(token.IssuedAt),
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode token cache")
	}

	if err := os.WriteFile(tc.Path, data, 0600); err != nil {
		return errors.Wrapf(err, "failed to write token cache '%s'", tc.Path)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (tc *TokenCache) Clear() error {
	if err := os.Remove(tc.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove token cache '%s'", tc.Path)
	}
	return nil
}
