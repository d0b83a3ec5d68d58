// Cache types for the in-memory document cache.
//
// Information Hiding:
// - Recency bookkeeping (logical clock) hidden from callers
// - Payload ownership: callers only ever see copies
package storage

import (
	"time"
)

const (
	// DefaultMaxEntries is the default entry bound.
	DefaultMaxEntries = 100
	// DefaultMaxBytes is the default byte budget (512 MiB).
	DefaultMaxBytes int64 = 512 * 1024 * 1024
)

// EntryInfo describes a cached payload without its bytes.
type EntryInfo struct {
	Key         string    `json:"key"`
	Digest      string    `json:"digest"` // xxhash64 of the payload, hex
	ByteSize    int64     `json:"byte_size"`
	CreatedAt   time.Time `json:"created_at"`
	AccessedAt  time.Time `json:"accessed_at"`
	AccessCount int64     `json:"access_count"`
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Entries       int         `json:"entries"`
	UsedBytes     int64       `json:"used_bytes"`
	MaxEntries    int         `json:"max_entries"`
	MaxBytes      int64       `json:"max_bytes"`
	Hits          uint64      `json:"hits"`
	Misses        uint64      `json:"misses"`
	Evictions     uint64      `json:"evictions"`
	Rejections    uint64      `json:"rejections"`
	RecentEntries []EntryInfo `json:"recent_entries,omitempty"` // most recently used first
}

// Options configures a Cache. Zero values select the defaults.
type Options struct {
	MaxEntries int
	MaxBytes   int64
}

// DefaultOptions returns the default cache bounds.
func DefaultOptions() Options {
	return Options{
		MaxEntries: DefaultMaxEntries,
		MaxBytes:   DefaultMaxBytes,
	}
}
