// Package resolver is the single entry point for pricing lookups. It picks
// the identifier family, consults the server-tier caches, calls the catalog
// on a miss and falls back to stale or default pricing on failure.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/apparel-pricing/pkg/cache"
	"github.com/Sternrassler/apparel-pricing/pkg/catalog"
	"github.com/Sternrassler/apparel-pricing/pkg/logging"
	"github.com/Sternrassler/apparel-pricing/pkg/pricing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for resolution outcomes.
var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_resolutions_total",
		Help: "Total pricing resolutions by source",
	}, []string{"source"})

	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_fallbacks_total",
		Help: "Total pricing fallbacks by error kind",
	}, []string{"kind"})

	overridesAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricing_overrides_applied_total",
		Help: "Total number of records changed by the price override table",
	})
)

// Catalog is the subset of the catalog client used by the resolver.
type Catalog interface {
	GetPricing(ctx context.Context, q catalog.PricingQuery) (*catalog.PricingResponse, error)
	GetInventoryLevels(ctx context.Context, style string) (*catalog.InventoryResponse, error)
}

// Options tune a single resolution.
type Options struct {
	// AcceptStale allows an expired cached value when the catalog call fails.
	AcceptStale bool

	// BypassCache skips the cache lookup; the fresh result is still stored.
	BypassCache bool
}

// Resolution is the outcome of Resolve. Result is never nil.
type Resolution struct {
	Result *pricing.Result
	Source pricing.Source

	// Err is the failure that caused a stale or default result.
	Err error

	// Age is how old a cached or stale result is.
	Age time.Duration
}

// Config holds the resolver dependencies.
type Config struct {
	Catalog    Catalog
	Normalizer *pricing.Normalizer

	// DisplayCache serves style/color/size lookups.
	DisplayCache *cache.Manager[*pricing.Result]
	// SecondaryCache serves inventoryKey/sizeIndex lookups.
	SecondaryCache *cache.Manager[*pricing.Result]
	// InventoryCache serves inventory lookups.
	InventoryCache *cache.Manager[pricing.Inventory]

	// Overrides is optional.
	Overrides *pricing.Overrides
}

// Resolver routes pricing lookups through cache and catalog.
type Resolver struct {
	catalog    Catalog
	normalizer *pricing.Normalizer
	display    *cache.Manager[*pricing.Result]
	secondary  *cache.Manager[*pricing.Result]
	inventory  *cache.Manager[pricing.Inventory]
	overrides  *pricing.Overrides
	logger     zerolog.Logger
}

// New creates a resolver.
func New(cfg Config) (*Resolver, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog client is required")
	}
	if cfg.DisplayCache == nil || cfg.SecondaryCache == nil {
		return nil, fmt.Errorf("display and secondary caches are required")
	}
	if cfg.InventoryCache == nil {
		return nil, fmt.Errorf("inventory cache is required")
	}

	logger := logging.NewLogger(logging.ComponentResolver)

	normalizer := cfg.Normalizer
	if normalizer == nil {
		normalizer = pricing.NewNormalizer(pricing.DefaultCaseSizes, logger)
	}

	return &Resolver{
		catalog:    cfg.Catalog,
		normalizer: normalizer,
		display:    cfg.DisplayCache,
		secondary:  cfg.SecondaryCache,
		inventory:  cfg.InventoryCache,
		overrides:  cfg.Overrides,
		logger:     logger,
	}, nil
}

// cacheFor returns the cache owning requests of family f.
func (r *Resolver) cacheFor(f pricing.IdentifierFamily) *cache.Manager[*pricing.Result] {
	if f == pricing.FamilyInventoryKey {
		return r.secondary
	}
	return r.display
}

// Resolve returns pricing for req. It never fails: on error the Resolution
// carries stale or default pricing and the error that caused it.
func (r *Resolver) Resolve(ctx context.Context, req pricing.Request, opts Options) (res *Resolution) {
	req = req.Normalized()

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic during resolution: %v", p)
			r.logger.Error().
				Str("style", req.Style).
				Str("color", req.Color).
				Interface("panic", p).
				Msg("Recovered from panic, serving default pricing")
			res = r.defaultResolution(req, err)
		}
		resolutionsTotal.WithLabelValues(string(res.Source)).Inc()
	}()

	if err := req.Validate(); err != nil {
		return r.defaultResolution(req, err)
	}

	key := cache.KeyFor(req)
	family := req.Family()
	store := r.cacheFor(family)

	if !opts.BypassCache {
		if entry, err := store.Entry(key); err == nil {
			return &Resolution{
				Result: entry.Value.WithSource(pricing.SourceCache),
				Source: pricing.SourceCache,
				Age:    entry.Age(store.Now()),
			}
		}
	}

	result, err := r.fetch(ctx, req, family)
	if err != nil {
		return r.fallback(req, key, store, opts, err)
	}

	store.Set(key, result)
	r.logger.Debug().
		Str("key", key).
		Str("cache", store.Name()).
		Int("sizes", len(result.Sizes)).
		Msg("Pricing cached")

	return &Resolution{Result: result, Source: pricing.SourceRemote}
}

// fetch calls the catalog and runs the normalize, reorder and override steps.
func (r *Resolver) fetch(ctx context.Context, req pricing.Request, family pricing.IdentifierFamily) (*pricing.Result, error) {
	query := catalog.PricingQuery{
		Style:          req.Style,
		Color:          req.Color,
		Size:           req.Size,
		InventoryKey:   req.InventoryKey,
		SizeIndex:      req.SizeIndex,
		ByInventoryKey: family == pricing.FamilyInventoryKey,
	}

	resp, err := r.catalog.GetPricing(ctx, query)
	if err != nil {
		return nil, err
	}

	result, err := r.normalizer.Normalize(req.Style, resp, req.Color)
	if err != nil {
		return nil, err
	}
	result = pricing.Reorder(result)

	if applied, n := r.overrides.Apply(result); n > 0 {
		overridesAppliedTotal.Add(float64(n))
		r.logger.Warn().
			Str("style", result.Style).
			Str("color", result.Color).
			Int("records", n).
			Msg("Price overrides applied")
		result = applied
	}
	return result, nil
}

func (r *Resolver) fallback(req pricing.Request, key string, store *cache.Manager[*pricing.Result], opts Options, err error) *Resolution {
	kind := ErrorKind(err)
	fallbacksTotal.WithLabelValues(kind).Inc()

	if opts.AcceptStale {
		if entry, staleErr := store.GetStale(key); staleErr == nil {
			age := entry.Age(store.Now())
			r.logger.Warn().
				Err(err).
				Str("key", key).
				Str("kind", kind).
				Dur("age", age).
				Msg("Catalog lookup failed, serving stale pricing")
			return &Resolution{
				Result: entry.Value.WithSource(pricing.SourceStale),
				Source: pricing.SourceStale,
				Err:    err,
				Age:    age,
			}
		}
	}

	return r.defaultResolution(req, err)
}

func (r *Resolver) defaultResolution(req pricing.Request, err error) *Resolution {
	r.logger.Error().
		Err(err).
		Str("style", req.Style).
		Str("color", req.Color).
		Str("kind", ErrorKind(err)).
		Msg("Serving default pricing")
	return &Resolution{
		Result: pricing.DefaultResult(req.Style, req.Color),
		Source: pricing.SourceDefault,
		Err:    err,
	}
}

// Invalidate removes the cached pricing of req. It reports whether req
// was valid.
func (r *Resolver) Invalidate(req pricing.Request) bool {
	req = req.Normalized()
	if req.Validate() != nil {
		return false
	}
	key := cache.KeyFor(req)
	r.cacheFor(req.Family()).Delete(key)
	r.logger.Info().Str("key", key).Msg("Pricing cache entry invalidated")
	return true
}

// Inventory returns the normalized stock of style, from cache when fresh.
func (r *Resolver) Inventory(ctx context.Context, style string) (pricing.Inventory, pricing.Source, error) {
	key := cache.InventoryKey(style)
	if inv, err := r.inventory.Get(key); err == nil {
		return inv, pricing.SourceCache, nil
	}

	resp, err := r.catalog.GetInventoryLevels(ctx, style)
	if err != nil {
		r.logger.Error().Err(err).Str("style", style).Msg("Inventory lookup failed")
		return nil, "", err
	}

	inv := pricing.NormalizeInventory(resp)
	r.inventory.Set(key, inv)
	return inv, pricing.SourceRemote, nil
}

// Warm resolves req so it is cached. Unlike Resolve it reports a failed
// lookup instead of hiding it behind default pricing.
func (r *Resolver) Warm(ctx context.Context, req pricing.Request) error {
	return r.Resolve(ctx, req, Options{}).Err
}

// CacheStats reports the state of all caches.
func (r *Resolver) CacheStats() []cache.Stats {
	return []cache.Stats{r.display.Stats(), r.secondary.Stats(), r.inventory.Stats()}
}

// ClearCaches empties every cache.
func (r *Resolver) ClearCaches() {
	r.display.Clear()
	r.secondary.Clear()
	r.inventory.Clear()
}

// ErrorKind names the class of a resolution error for logs and API payloads.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if kind := catalog.KindOf(err); kind != "" {
		return string(kind)
	}
	switch {
	case errors.Is(err, pricing.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, pricing.ErrNoPricingData):
		return "no_data"
	case errors.Is(err, context.DeadlineExceeded):
		return string(catalog.KindTimeout)
	case errors.Is(err, catalog.ErrContextCancelled), errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "internal"
	}
}
