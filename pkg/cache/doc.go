// Package cache provides the in-process TTL cache of the pricing service.
//
// A Manager is an explicit object constructed once at startup and injected
// where it is needed. Each instance has its own TTL so the display cache,
// the secondary cache and the inventory cache can expire independently.
//
// # Expiry
//
// An entry is valid while now < ExpiresAt. Get removes an expired entry
// and reports ErrCacheMiss in the same call; no stale value is ever
// returned from Get. A background sweep is optional (StartSweeper).
//
// # Stale Retention
//
// With WithStaleRetention, expired entries are kept aside for a bounded
// window and can be read through GetStale. Callers use this only when they
// explicitly accept stale data after a failed refresh.
//
// # Basic Usage
//
//	displayCache := cache.NewManager[*pricing.Result]("pricing_display", 15*time.Minute)
//
//	key := cache.KeyFor(pricing.Request{Style: "PC61", Color: "White"})
//	result, err := displayCache.Get(key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch, normalize, then:
//		displayCache.Set(key, result)
//	}
//
// # Metrics
//
//   - pricing_cache_hits_total{cache}
//   - pricing_cache_misses_total{cache}
//   - pricing_cache_expirations_total{cache}
//   - pricing_cache_evictions_total{cache}
//   - pricing_cache_entries{cache}
package cache
