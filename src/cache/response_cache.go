package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"kiwoom-dashboard/src/logger"

	"github.com/pkg/errors"
)

// -----------------------------------------------------------------------------

// ResponseCache keeps broker response bodies in memory and on disk for TTL.
// Entries survive restarts through the files in Dir.
type ResponseCache struct {
	Dir    string
	TTL    time.Duration
	Logger *logger.Logger

	mu     sync.RWMutex
	memory map[string]*CachedResponse
	now    func() time.Time
}

// CachedResponse is the on-disk form of one entry.
type CachedResponse struct {
	APIID    string          `json:"api_id"`
	Params   json.RawMessage `json:"params"`
	StoredAt time.Time       `json:"stored_at"`
	Body     json.RawMessage `json:"body"`
}

// -----------------------------------------------------------------------------

func NewResponseCache(dir string, ttl time.Duration, log *logger.Logger) *ResponseCache {
	return &ResponseCache{
		Dir:    dir,
		TTL:    ttl,
		Logger: log,
		memory: make(map[string]*CachedResponse),
		now:    time.Now,
	}
}

// -----------------------------------------------------------------------------

// Key derives the entry name from the scope (server type), api id and params.
func Key(scope, apiID string, params interface{}) (string, json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to encode cache params")
	}
	sum := sha256.Sum256([]byte(scope + ":" + apiID + ":" + string(raw)))
	return hex.EncodeToString(sum[:]), raw, nil
}

// -----------------------------------------------------------------------------

// Get returns a live body, checking memory first and the file second.
// Expired or corrupt files are removed.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.memory[key]
	c.mu.RUnlock()
	if ok {
		if c.fresh(entry) {
			return entry.Body, true
		}
		c.drop(key)
		return nil, false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var stored CachedResponse
	if err := json.Unmarshal(data, &stored); err != nil || stored.Body == nil {
		c.Logger.Warning("removing corrupt cache file %s", key)
		c.drop(key)
		return nil, false
	}
	if !c.fresh(&stored) {
		c.drop(key)
		return nil, false
	}

	c.mu.Lock()
	c.memory[key] = &stored
	c.mu.Unlock()
	return stored.Body, true
}

// -----------------------------------------------------------------------------

// Set stores body under key. A failed file write only loses persistence.
func (c *ResponseCache) Set(key, apiID string, params json.RawMessage, body []byte) {
	entry := &CachedResponse{
		APIID:    apiID,
		Params:   params,
		StoredAt: c.now(),
		Body:     append(json.RawMessage(nil), body...),
	}

	c.mu.Lock()
	c.memory[key] = entry
	c.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		c.Logger.Warning("could not encode cache entry for %s: %v", apiID, err)
		return
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		c.Logger.Warning("could not create cache directory %s: %v", c.Dir, err)
		return
	}
	if err := os.WriteFile(c.path(key), data, 0600); err != nil {
		c.Logger.Warning("could not write cache entry for %s: %v", apiID, err)
	}
}

// -----------------------------------------------------------------------------

// Clear removes every entry and returns how many files were deleted.
func (c *ResponseCache) Clear() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory = make(map[string]*CachedResponse)

	files, err := filepath.Glob(filepath.Join(c.Dir, "*.json"))
	if err != nil {
		return 0, errors.Wrap(err, "failed to list cache files")
	}
	removed := 0
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return removed, errors.Wrapf(err, "failed to remove cache file '%s'", f)
		}
		removed++
	}
	c.Logger.Info("response cache cleared (%d files)", removed)
	return removed, nil
}

// -----------------------------------------------------------------------------

// ClearExpired deletes stale and corrupt files, leaving live ones.
func (c *ResponseCache) ClearExpired() int {
	files, err := filepath.Glob(filepath.Join(c.Dir, "*.json"))
	if err != nil {
		return 0
	}
	removed := 0
	for _, f := range files {
		if _, ok := c.Get(strings.TrimSuffix(filepath.Base(f), ".json")); !ok {
			removed++
		}
	}
	return removed
}

// -----------------------------------------------------------------------------

func (c *ResponseCache) fresh(entry *CachedResponse) bool {
	return c.now().Sub(entry.StoredAt) <= c.TTL
}

func (c *ResponseCache) drop(key string) {
	c.mu.Lock()
	delete(c.memory, key)
	c.mu.Unlock()
	_ = os.Remove(c.path(key))
}

func (c *ResponseCache) path(key string) string {
	return filepath.Join(c.Dir, key+".json")
}
