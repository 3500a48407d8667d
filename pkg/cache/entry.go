package cache

import "time"

// Entry wraps a cached value with its lifetime.
type Entry[V any] struct {
	Value     V
	StoredAt  time.Time
	ExpiresAt time.Time
}

// NewEntry creates an entry stored at now that lives for ttl.
func NewEntry[V any](value V, now time.Time, ttl time.Duration) Entry[V] {
	return Entry[V]{
		Value:     value,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the entry is no longer valid at now.
func (e Entry[V]) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TTL returns the time left at now. Returns 0 if already expired.
func (e Entry[V]) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Age returns how long ago the entry was stored.
func (e Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}
