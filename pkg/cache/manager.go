package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/apparel-pricing/pkg/logging"
	"github.com/rs/zerolog"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache or has expired
	ErrCacheMiss = errors.New("cache miss")
)

// Clock returns the current time.
type Clock func() time.Time

// Option configures a Manager.
type Option func(*options)

type options struct {
	clock          Clock
	staleRetention time.Duration
	logger         *zerolog.Logger
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithStaleRetention keeps expired entries readable through GetStale for d
// after they expire.
func WithStaleRetention(d time.Duration) Option {
	return func(o *options) {
		o.staleRetention = d
	}
}

// WithLogger sets the logger. Defaults to the "pricing-cache" component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// Manager is a concurrency-safe in-process cache with a fixed TTL.
type Manager[V any] struct {
	name           string
	ttl            time.Duration
	staleRetention time.Duration
	now            Clock
	logger         zerolog.Logger

	mu      sync.Mutex
	entries map[string]Entry[V]
	stale   map[string]Entry[V]
}

// Stats is a point-in-time view of a Manager.
type Stats struct {
	Name    string        `json:"name"`
	TTL     time.Duration `json:"ttl"`
	Entries int           `json:"entries"`
	Stale   int           `json:"stale"`
}

// NewManager creates a cache named name whose entries live for ttl.
func NewManager[V any](name string, ttl time.Duration, opts ...Option) *Manager[V] {
	if ttl <= 0 {
		panic("cache ttl must be positive")
	}

	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	logger := logging.NewLogger(logging.ComponentCache)
	if o.logger != nil {
		logger = *o.logger
	}

	return &Manager[V]{
		name:           name,
		ttl:            ttl,
		staleRetention: o.staleRetention,
		now:            o.clock,
		logger:         logger.With().Str("cache", name).Logger(),
		entries:        make(map[string]Entry[V]),
		stale:          make(map[string]Entry[V]),
	}
}

// Name returns the cache name used in metrics and logs.
func (m *Manager[V]) Name() string {
	return m.name
}

// TTL returns the lifetime of new entries.
func (m *Manager[V]) TTL() time.Duration {
	return m.ttl
}

// Now returns the current time of the manager's clock.
func (m *Manager[V]) Now() time.Time {
	return m.now()
}

// Get returns the value stored under key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired; an
// expired entry is removed in the same call.
func (m *Manager[V]) Get(key string) (V, error) {
	entry, err := m.Entry(key)
	if err != nil {
		var zero V
		return zero, err
	}
	return entry.Value, nil
}

// Entry returns the full entry under key, with the same expiry rules as Get.
func (m *Manager[V]) Entry(key string) (Entry[V], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		CacheMisses.WithLabelValues(m.name).Inc()
		m.logger.Debug().Str("key", key).Msg("Cache miss")
		return Entry[V]{}, ErrCacheMiss
	}

	now := m.now()
	if entry.IsExpired(now) {
		m.expireLocked(key, entry)
		CacheMisses.WithLabelValues(m.name).Inc()
		m.logger.Debug().Str("key", key).Msg("Cache entry expired")
		return Entry[V]{}, ErrCacheMiss
	}

	CacheHits.WithLabelValues(m.name).Inc()
	m.logger.Debug().Str("key", key).Dur("ttl_left", entry.TTL(now)).Msg("Cache hit")
	return entry, nil
}

// Set stores value under key, replacing any previous entry.
func (m *Manager[V]) Set(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = NewEntry(value, m.now(), m.ttl)
	delete(m.stale, key)
	CacheEntries.WithLabelValues(m.name).Set(float64(len(m.entries)))
}

// Delete removes key, including any stale copy. Deleting an absent key is
// not an error.
func (m *Manager[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, live := m.entries[key]
	_, stale := m.stale[key]
	if !live && !stale {
		return
	}

	delete(m.entries, key)
	delete(m.stale, key)
	CacheEvictions.WithLabelValues(m.name).Inc()
	CacheEntries.WithLabelValues(m.name).Set(float64(len(m.entries)))
	m.logger.Debug().Str("key", key).Msg("Cache entry invalidated")
}

// GetStale returns the last value stored under key even if it has expired,
// as long as it is within the stale retention window. The returned entry
// tells how old the value is.
func (m *Manager[V]) GetStale(key string) (Entry[V], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if entry, ok := m.entries[key]; ok {
		if !entry.IsExpired(now) {
			return entry, nil
		}
		m.expireLocked(key, entry)
	}

	entry, ok := m.stale[key]
	if !ok {
		return Entry[V]{}, ErrCacheMiss
	}
	if !now.Before(entry.ExpiresAt.Add(m.staleRetention)) {
		delete(m.stale, key)
		return Entry[V]{}, ErrCacheMiss
	}
	return entry, nil
}

// Len returns the number of live entries, expired ones included until
// they are next accessed or swept.
func (m *Manager[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Clear removes every entry.
func (m *Manager[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.entries)
	m.entries = make(map[string]Entry[V])
	m.stale = make(map[string]Entry[V])
	CacheEvictions.WithLabelValues(m.name).Add(float64(n))
	CacheEntries.WithLabelValues(m.name).Set(0)
	m.logger.Info().Int("entries", n).Msg("Cache cleared")
}

// Stats returns the current entry counts.
func (m *Manager[V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Name:    m.name,
		TTL:     m.ttl,
		Entries: len(m.entries),
		Stale:   len(m.stale),
	}
}

// Sweep removes expired entries and stale copies past their retention.
// It returns the number of live entries expired.
func (m *Manager[V]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expired := 0
	for key, entry := range m.entries {
		if entry.IsExpired(now) {
			m.expireLocked(key, entry)
			expired++
		}
	}
	for key, entry := range m.stale {
		if !now.Before(entry.ExpiresAt.Add(m.staleRetention)) {
			delete(m.stale, key)
		}
	}
	return expired
}

// StartSweeper runs Sweep every interval until ctx is done.
func (m *Manager[V]) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.logger.Debug().Int("expired", n).Msg("Swept expired cache entries")
				}
			}
		}
	}()
}

// expireLocked removes an expired live entry, keeping a stale copy when
// retention is enabled. m.mu must be held.
func (m *Manager[V]) expireLocked(key string, entry Entry[V]) {
	delete(m.entries, key)
	if m.staleRetention > 0 {
		m.stale[key] = entry
	}
	CacheExpirations.WithLabelValues(m.name).Inc()
	CacheEntries.WithLabelValues(m.name).Set(float64(len(m.entries)))
}
