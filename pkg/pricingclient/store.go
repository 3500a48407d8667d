package pricingclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Kind is the data kind of a stored entry; each kind has its own TTL.
type Kind string

const (
	KindPricing      Kind = "pricing"
	KindInventory    Kind = "inventory"
	KindAutocomplete Kind = "autocomplete"
)

// DefaultMaxEntries is the entry count a full storage is pruned down to.
const DefaultMaxEntries = 50

// TTLs holds the lifetime of each data kind.
type TTLs struct {
	Pricing      time.Duration
	Inventory    time.Duration
	Autocomplete time.Duration
}

// DefaultTTLs returns 30 minutes for pricing and inventory and 24 hours
// for autocomplete suggestions.
func DefaultTTLs() TTLs {
	return TTLs{
		Pricing:      30 * time.Minute,
		Inventory:    30 * time.Minute,
		Autocomplete: 24 * time.Hour,
	}
}

func (t TTLs) of(kind Kind) time.Duration {
	switch kind {
	case KindInventory:
		return t.Inventory
	case KindAutocomplete:
		return t.Autocomplete
	default:
		return t.Pricing
	}
}

// storedEntry is the persisted form of a value.
type storedEntry struct {
	Kind      Kind            `json:"kind"`
	StoredAt  time.Time       `json:"storedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Value     json.RawMessage `json:"value"`
}

// StoreConfig holds the Store configuration.
type StoreConfig struct {
	Storage    Storage
	TTLs       TTLs
	MaxEntries int
	Clock      func() time.Time
	Logger     zerolog.Logger
}

// Store is the client-tier cache: TTL per data kind on top of a Storage,
// tolerant of corrupted entries and of a full storage.
type Store struct {
	storage    Storage
	ttls       TTLs
	maxEntries int
	now        func() time.Time
	logger     zerolog.Logger

	// mu serializes writes so a read never sees a prune in progress.
	mu sync.Mutex
}

// NewStore creates a store. Zero TTLs and MaxEntries take their defaults.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	defaults := DefaultTTLs()
	if cfg.TTLs.Pricing <= 0 {
		cfg.TTLs.Pricing = defaults.Pricing
	}
	if cfg.TTLs.Inventory <= 0 {
		cfg.TTLs.Inventory = defaults.Inventory
	}
	if cfg.TTLs.Autocomplete <= 0 {
		cfg.TTLs.Autocomplete = defaults.Autocomplete
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Store{
		storage:    cfg.Storage,
		ttls:       cfg.TTLs,
		maxEntries: cfg.MaxEntries,
		now:        cfg.Clock,
		logger:     cfg.Logger,
	}, nil
}

func storageKey(kind Kind, key string) string {
	return string(kind) + ":" + strings.ToLower(strings.TrimSpace(key))
}

// Get decodes the fresh value under kind and key into dst. Returns
// ErrNotFound for absent, expired or corrupted entries; the latter two are
// removed.
func (s *Store) Get(ctx context.Context, kind Kind, key string, dst any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, storageKey(kind, key), dst)
}

func (s *Store) getLocked(ctx context.Context, skey string, dst any) error {
	entry, err := s.readLocked(ctx, skey)
	if err != nil {
		return err
	}
	if !s.now().Before(entry.ExpiresAt) {
		_ = s.storage.Delete(ctx, skey)
		s.logger.Debug().Str("key", skey).Msg("Client cache entry expired")
		return ErrNotFound
	}
	if err := json.Unmarshal(entry.Value, dst); err != nil {
		s.logger.Warn().Err(err).Str("key", skey).Msg("Removing undecodable client cache entry")
		_ = s.storage.Delete(ctx, skey)
		return ErrNotFound
	}
	return nil
}

// readLocked loads and decodes the envelope under skey, dropping it when
// it is corrupted.
func (s *Store) readLocked(ctx context.Context, skey string) (storedEntry, error) {
	data, err := s.storage.Get(ctx, skey)
	if err != nil {
		return storedEntry{}, err
	}
	var entry storedEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.ExpiresAt.IsZero() {
		s.logger.Warn().Str("key", skey).Msg("Removing corrupted client cache entry")
		_ = s.storage.Delete(ctx, skey)
		return storedEntry{}, ErrNotFound
	}
	return entry, nil
}

// Set stores value under kind and key. When the storage refuses the write
// the oldest entries are pruned down to MaxEntries and the write is
// retried once.
func (s *Store) Set(ctx context.Context, kind Kind, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s entry: %w", kind, err)
	}
	now := s.now()
	data, err := json.Marshal(storedEntry{
		Kind:      kind,
		StoredAt:  now,
		ExpiresAt: now.Add(s.ttls.of(kind)),
		Value:     raw,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	skey := storageKey(kind, key)
	err = s.storage.Set(ctx, skey, data)
	if err == nil {
		return nil
	}

	s.logger.Warn().Err(err).Str("key", skey).Msg("Client cache write failed, pruning")
	if _, pruneErr := s.pruneLocked(ctx, s.maxEntries); pruneErr != nil {
		return fmt.Errorf("prune after failed write: %w", pruneErr)
	}
	if err := s.storage.Set(ctx, skey, data); err != nil {
		s.logger.Error().Err(err).Str("key", skey).Msg("Client cache write failed after pruning")
		return err
	}
	return nil
}

// Delete removes the entry under kind and key.
func (s *Store) Delete(ctx context.Context, kind Kind, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.Delete(ctx, storageKey(kind, key))
}

// Prune removes expired and corrupted entries, then the oldest ones until
// at most limit remain. It returns the number removed.
func (s *Store) Prune(ctx context.Context, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(ctx, limit)
}

func (s *Store) pruneLocked(ctx context.Context, limit int) (int, error) {
	keys, err := s.storage.Keys(ctx)
	if err != nil {
		return 0, err
	}

	type aged struct {
		key      string
		storedAt time.Time
	}
	now := s.now()
	removed := 0
	live := make([]aged, 0, len(keys))
	for _, k := range keys {
		entry, err := s.readLocked(ctx, k)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				removed++
			}
			continue
		}
		if !now.Before(entry.ExpiresAt) {
			_ = s.storage.Delete(ctx, k)
			removed++
			continue
		}
		live = append(live, aged{key: k, storedAt: entry.StoredAt})
	}

	sort.Slice(live, func(i, j int) bool { return live[i].storedAt.Before(live[j].storedAt) })
	for len(live) > limit {
		if err := s.storage.Delete(ctx, live[0].key); err != nil {
			return removed, err
		}
		live = live[1:]
		removed++
	}

	s.logger.Info().Int("removed", removed).Int("remaining", len(live)).Msg("Client cache pruned")
	return removed, nil
}

// Clear removes every entry of the store.
func (s *Store) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.storage.Keys(ctx)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := s.storage.Delete(ctx, k); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

// GetSuggestions returns cached autocomplete suggestions for query. On an
// exact miss, the longest cached shorter prefix is filtered to query and
// returned with degraded set.
func (s *Store) GetSuggestions(ctx context.Context, query string) (suggestions []string, degraded bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query = strings.ToLower(strings.TrimSpace(query))
	if err := s.getLocked(ctx, storageKey(KindAutocomplete, query), &suggestions); err == nil {
		return suggestions, false, nil
	}

	for n := len(query) - 1; n > 0; n-- {
		var cached []string
		if err := s.getLocked(ctx, storageKey(KindAutocomplete, query[:n]), &cached); err != nil {
			continue
		}
		filtered := make([]string, 0, len(cached))
		for _, c := range cached {
			if strings.HasPrefix(strings.ToLower(c), query) {
				filtered = append(filtered, c)
			}
		}
		s.logger.Debug().Str("query", query).Str("prefix", query[:n]).Msg("Autocomplete served from shorter prefix")
		return filtered, true, nil
	}
	return nil, false, ErrNotFound
}
