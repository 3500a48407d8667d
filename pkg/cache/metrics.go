package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by cache instance
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_cache_hits_total",
			Help: "Total number of pricing cache hits",
		},
		[]string{"cache"},
	)

	// CacheMisses tracks cache misses, including expired entries
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_cache_misses_total",
			Help: "Total number of pricing cache misses",
		},
		[]string{"cache"},
	)

	// CacheExpirations tracks entries removed because their TTL elapsed
	CacheExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_cache_expirations_total",
			Help: "Total number of expired pricing cache entries removed",
		},
		[]string{"cache"},
	)

	// CacheEvictions tracks explicit invalidations
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_cache_evictions_total",
			Help: "Total number of pricing cache entries removed by invalidation",
		},
		[]string{"cache"},
	)

	// CacheEntries tracks the number of live entries
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pricing_cache_entries",
			Help: "Current number of entries in the pricing cache",
		},
		[]string{"cache"},
	)
)
