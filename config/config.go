// Package config defines the Configuration capability the upgrade engine
// reads and writes settings through, and a minimal in-memory
// implementation sufficient for library consumers and tests. Real
// deployments are expected to supply their own Configuration backed by
// /etc/zif.conf or equivalent; parsing that file is out of scope.
package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// Configuration is the external capability interface consumed by the
// upgrade engine and release catalog: get/set string and unsigned
// integer values, unset a value, and expand $var references against the
// current value set.
type Configuration interface {
	GetString(key string) (string, bool)
	GetUint(key string) (uint64, bool)
	SetUint(key string, value uint64)
	Unset(key string)
	// Expand substitutes $var/${var} references in s using GetString,
	// the way releasever is spliced into mirror URIs.
	Expand(s string) string
}

// Map is an in-memory Configuration backed by a map[string]string; all
// values round-trip through strconv for the Uint accessors.
type Map struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{m: make(map[string]string)}
}

// GetString implements Configuration.
func (c *Map) GetString(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

// SetString sets key to a string value directly.
func (c *Map) SetString(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

// GetUint implements Configuration.
func (c *Map) GetUint(key string) (uint64, bool) {
	c.mu.RLock()
	s, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SetUint implements Configuration.
func (c *Map) SetUint(key string, value uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = strconv.FormatUint(value, 10)
}

// Unset implements Configuration.
func (c *Map) Unset(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

// Expand implements Configuration using os.Expand against GetString.
func (c *Map) Expand(s string) string {
	return os.Expand(s, func(key string) string {
		v, _ := c.GetString(key)
		return v
	})
}

// OverrideUint sets key to value and returns a restore func that puts the
// prior value (or absence of one) back. Callers MUST defer restore() so
// the override is undone on every exit path, including error returns --
// this is the scope-guard the Complete-mode releasever override depends
// on.
func OverrideUint(cfg Configuration, key string, value uint64) (restore func()) {
	prior, hadPrior := cfg.GetUint(key)
	cfg.SetUint(key, value)
	return func() {
		if hadPrior {
			cfg.SetUint(key, prior)
		} else {
			cfg.Unset(key)
		}
	}
}

// ErrNotConfigured is a sentinel for callers that want to distinguish
// "key absent" from other failures when a Configuration implementation
// wraps a richer error (e.g. a file-backed implementation outside this
// package).
var ErrNotConfigured = errors.New("config: key not set")
