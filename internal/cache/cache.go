// Package cache provides an in-memory response cache with per-entry
// TTL and prefix-based invalidation. It backs the gateway's cache-aside
// reads; a mutation invalidates a whole key family by entity prefix.
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is a single cached value. Entries are immutable once created;
// a refresh replaces the entry rather than mutating it in place.
type Entry struct {
	Key       string
	Value     any
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its TTL at the given time.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Cache is a key→entry map guarded by a mutex. At most one live entry
// exists per key. Expiry is lazy: Get treats an expired entry as
// absent but leaves it in place until the next Set for that key or an
// InvalidatePrefix covering it.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

// New creates an empty cache using the wall clock.
func New() *Cache {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty cache with a custom time source.
// Tests use this to simulate TTL expiry without sleeping.
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		now:     now,
	}
}

// Get returns the cached value for key. ok is false when no entry
// exists or the entry has expired. A mis-keyed Get simply misses.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || entry.Expired(c.now()) {
		return nil, false
	}
	return entry.Value, true
}

// Set stores value under key with the given TTL, replacing any
// existing entry in a single critical section. A non-positive TTL is
// ignored: an entry that can never be fresh is not worth storing.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Invalidate removes the entry for key, if any.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidatePrefix removes every entry whose key starts with prefix.
// A mutation on one entity type uses this to drop every cached listing
// for that entity without knowing the parameter combinations cached.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// StaleKeys returns the keys under prefix whose entries have expired.
// The auto-refresh loop uses this to decide what to re-fetch.
func (c *Cache) StaleKeys(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var stale []string
	for key, entry := range c.entries {
		if strings.HasPrefix(key, prefix) && entry.Expired(now) {
			stale = append(stale, key)
		}
	}
	sort.Strings(stale)
	return stale
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Key builds a deterministic cache key from an operation name and its
// parameters. Params are sorted by name and empty values dropped, so
// distinct parameter sets never collide and identical ones always hit.
func Key(operation string, params map[string]string) string {
	if len(params) == 0 {
		return operation
	}

	names := make([]string, 0, len(params))
	for name, value := range params {
		if value == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(operation)
	for _, name := range names {
		b.WriteByte('_')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}
	return b.String()
}
