// Cache is a bounded, concurrency-safe store of document payloads.
//
// Architecture:
// - map for O(1) lookup by opaque key
// - logical clock stamped on every Get/Put; eviction removes the smallest stamp
// - two bounds: entry count and total payload bytes
package storage

import (
	"encoding/binary"
	"encoding/hex"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
)

type cacheEntry struct {
	key       string
	payload   []byte
	size      int64
	digest    string
	createdAt time.Time

	lastUsed    atomic.Uint64
	accessedAt  atomic.Int64 // unix nanos
	accessCount atomic.Int64
}

// Cache maps generated keys to immutable byte payloads with LRU eviction
// under an entry bound and a byte budget.
//
// Mutations (Put, Store, Remove, eviction) hold the write lock, so eviction
// and the insert it makes room for are observed as one step. Get holds the
// read lock and records recency through atomics, so reads run concurrently.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	maxEntries int
	maxBytes   int64
	usedBytes  int64

	clock      atomic.Uint64
	hits       atomic.Uint64
	misses     atomic.Uint64
	evictions  atomic.Uint64
	rejections atomic.Uint64

	logger zerolog.Logger
}

// NewCache creates an empty cache. Non-positive bounds fall back to defaults.
func NewCache(opts Options, logger zerolog.Logger) *Cache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &Cache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: opts.MaxEntries,
		maxBytes:   opts.MaxBytes,
		logger:     logger.With().Str("component", "cache").Logger(),
	}
}

// NewInMemoryCache creates a cache with the default bounds and no logging.
func NewInMemoryCache() *Cache {
	return NewCache(DefaultOptions(), zerolog.Nop())
}

// Put inserts a copy of payload under key, replacing any existing entry.
// A payload larger than the byte budget is rejected without evicting anything.
func (c *Cache) Put(key string, payload []byte) error {
	if key == "" {
		return apperrors.New(apperrors.KindInvalidArgument, "cache key must not be empty")
	}
	size := int64(len(payload))
	if size > c.maxBytes {
		c.rejections.Add(1)
		return apperrors.Newf(apperrors.KindCacheRejected, "payload exceeds cache capacity", "size=%d max=%d", size, c.maxBytes)
	}

	entry := c.newEntry(key, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(entry)
}

// Store inserts a copy of payload under a freshly generated key and returns it.
func (c *Cache) Store(payload []byte) (string, error) {
	size := int64(len(payload))
	if size > c.maxBytes {
		c.rejections.Add(1)
		return "", apperrors.Newf(apperrors.KindCacheRejected, "payload exceeds cache capacity", "size=%d max=%d", size, c.maxBytes)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.uniqueKeyLocked()
	if err := c.insertLocked(c.newEntry(key, payload)); err != nil {
		return "", err
	}
	return key, nil
}

// Get returns a copy of the payload for key and marks it most recently used.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.touch(entry)
	c.hits.Add(1)

	out := make([]byte, len(entry.payload))
	copy(out, entry.payload)
	return out, true
}

// Lookup is Get with a coded cache-miss error.
func (c *Cache) Lookup(key string) ([]byte, error) {
	data, ok := c.Get(key)
	if !ok {
		return nil, apperrors.Newf(apperrors.KindCacheMiss, "cache key not found", "key=%s", key)
	}
	return data, nil
}

// Info returns metadata for key without touching recency.
func (c *Cache) Info(key string) (EntryInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return EntryInfo{}, false
	}
	return entry.info(), true
}

// Contains reports whether key is live.
func (c *Cache) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Remove deletes key. It reports whether an entry was removed.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(entry)
	return true
}

// GenerateUniqueKey returns a random key that does not collide with any
// live key at the time of the call.
func (c *Cache) GenerateUniqueKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.uniqueKeyLocked()
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// UsedBytes returns the sum of live payload sizes.
func (c *Cache) UsedBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.usedBytes
}

// Stats returns counters and up to limit entries ordered by recency.
// A non-positive limit returns every entry.
func (c *Cache) Stats(limit int) Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		Entries:    len(c.entries),
		UsedBytes:  c.usedBytes,
		MaxEntries: c.maxEntries,
		MaxBytes:   c.maxBytes,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		Rejections: c.rejections.Load(),
	}

	ordered := c.byRecencyLocked()
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	for _, e := range ordered {
		stats.RecentEntries = append(stats.RecentEntries, e.info())
	}
	return stats
}

// Close drops every entry.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.usedBytes = 0
	return nil
}

func (c *Cache) newEntry(key string, payload []byte) *cacheEntry {
	data := make([]byte, len(payload))
	copy(data, payload)
	now := time.Now()
	entry := &cacheEntry{
		key:       key,
		payload:   data,
		size:      int64(len(data)),
		digest:    computeDigest(data),
		createdAt: now,
	}
	entry.accessedAt.Store(now.UnixNano())
	return entry
}

// insertLocked evicts least recently used entries until the new entry fits
// both bounds, then inserts it. The caller holds the write lock.
func (c *Cache) insertLocked(entry *cacheEntry) error {
	if existing, ok := c.entries[entry.key]; ok {
		c.removeLocked(existing)
	}

	for len(c.entries) > 0 && (len(c.entries) >= c.maxEntries || c.usedBytes+entry.size > c.maxBytes) {
		victim := c.oldestLocked()
		c.removeLocked(victim)
		c.evictions.Add(1)
		c.logger.Debug().
			Str("key", victim.key).
			Int64("size", victim.size).
			Int64("used_bytes", c.usedBytes).
			Msg("evicted cache entry")
	}

	if c.usedBytes+entry.size > c.maxBytes || c.usedBytes < 0 {
		return apperrors.Newf(apperrors.KindInternal, "cache accounting mismatch", "used=%d size=%d max=%d", c.usedBytes, entry.size, c.maxBytes)
	}

	entry.lastUsed.Store(c.clock.Add(1))
	c.entries[entry.key] = entry
	c.usedBytes += entry.size
	return nil
}

func (c *Cache) removeLocked(entry *cacheEntry) {
	delete(c.entries, entry.key)
	c.usedBytes -= entry.size
}

func (c *Cache) oldestLocked() *cacheEntry {
	var oldest *cacheEntry
	for _, e := range c.entries {
		if oldest == nil || e.lastUsed.Load() < oldest.lastUsed.Load() {
			oldest = e
		}
	}
	return oldest
}

func (c *Cache) byRecencyLocked() []*cacheEntry {
	out := make([]*cacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].lastUsed.Load() > out[j].lastUsed.Load()
	})
	return out
}

func (c *Cache) touch(entry *cacheEntry) {
	entry.lastUsed.Store(c.clock.Add(1))
	entry.accessedAt.Store(time.Now().UnixNano())
	entry.accessCount.Add(1)
}

func (c *Cache) uniqueKeyLocked() string {
	for {
		key := uuid.NewString()
		if _, taken := c.entries[key]; !taken {
			return key
		}
	}
}

func (e *cacheEntry) info() EntryInfo {
	return EntryInfo{
		Key:         e.key,
		Digest:      e.digest,
		ByteSize:    e.size,
		CreatedAt:   e.createdAt,
		AccessedAt:  time.Unix(0, e.accessedAt.Load()),
		AccessCount: e.accessCount.Load(),
	}
}

// computeDigest returns the hex-encoded xxhash64 of data.
func computeDigest(data []byte) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], xxhash.Sum64(data))
	return hex.EncodeToString(buf[:])
}
