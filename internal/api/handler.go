// Package api serves pricing, inventory and autocomplete over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Sternrassler/apparel-pricing/pkg/cache"
	"github.com/Sternrassler/apparel-pricing/pkg/logging"
	"github.com/Sternrassler/apparel-pricing/pkg/metrics"
	"github.com/Sternrassler/apparel-pricing/pkg/pricing"
	"github.com/Sternrassler/apparel-pricing/pkg/resolver"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	// HeaderPricingSource names where the pricing in a response came from.
	HeaderPricingSource = "X-Pricing-Source"

	// HeaderRequestID carries the request id.
	HeaderRequestID = "X-Request-ID"

	// minQueryLength is the shortest autocomplete query answered.
	minQueryLength = 2

	defaultPricingMaxAge      = 15 * time.Minute
	defaultAutocompleteMaxAge = 24 * time.Hour
)

// Service is the pricing backend behind the handler.
type Service interface {
	Resolve(ctx context.Context, req pricing.Request, opts resolver.Options) *resolver.Resolution
	Invalidate(req pricing.Request) bool
	Inventory(ctx context.Context, style string) (pricing.Inventory, pricing.Source, error)
	CacheStats() []cache.Stats
	ClearCaches()
}

// Config holds the handler dependencies.
type Config struct {
	Service Service

	// AutocompleteStyles is the list autocomplete suggestions come from.
	AutocompleteStyles []string

	// Ready reports whether the server can price requests. Nil means always.
	Ready func() error

	// PricingMaxAge and AutocompleteMaxAge set the Cache-Control max-age of
	// fresh responses. Zero takes 15 minutes and 24 hours.
	PricingMaxAge      time.Duration
	AutocompleteMaxAge time.Duration
}

// Handler serves the HTTP API.
type Handler struct {
	service            Service
	styles             []string
	ready              func() error
	pricingMaxAge      time.Duration
	autocompleteMaxAge time.Duration
	logger             zerolog.Logger
}

// NewHandler creates a handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("pricing service is required")
	}
	if cfg.PricingMaxAge <= 0 {
		cfg.PricingMaxAge = defaultPricingMaxAge
	}
	if cfg.AutocompleteMaxAge <= 0 {
		cfg.AutocompleteMaxAge = defaultAutocompleteMaxAge
	}

	styles := make([]string, 0, len(cfg.AutocompleteStyles))
	for _, s := range cfg.AutocompleteStyles {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			styles = append(styles, s)
		}
	}

	return &Handler{
		service:            cfg.Service,
		styles:             styles,
		ready:              cfg.Ready,
		pricingMaxAge:      cfg.PricingMaxAge,
		autocompleteMaxAge: cfg.AutocompleteMaxAge,
		logger:             logging.NewLogger(logging.ComponentAPI),
	}, nil
}

// Routes returns the router with all endpoints and middleware.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, h.accessLogMiddleware, h.recoverMiddleware)

	// Routes sit on the root router so a known path with the wrong
	// method answers 405 rather than 404.
	r.HandleFunc("/api/pricing/{style}/{color}", h.GetPricing).Methods(http.MethodGet)
	r.HandleFunc("/api/pricing/{style}", h.GetPricing).Methods(http.MethodGet)
	r.HandleFunc("/api/pricing", h.GetPricing).Methods(http.MethodGet)
	r.HandleFunc("/api/pricing/{style}/{color}", h.InvalidatePricing).Methods(http.MethodDelete)
	r.HandleFunc("/api/pricing/{style}", h.InvalidatePricing).Methods(http.MethodDelete)
	r.HandleFunc("/api/pricing", h.InvalidatePricing).Methods(http.MethodDelete)
	r.HandleFunc("/api/inventory/{style}", h.GetInventory).Methods(http.MethodGet)
	r.HandleFunc("/api/autocomplete", h.Autocomplete).Methods(http.MethodGet)
	r.HandleFunc("/api/cache", h.CacheStats).Methods(http.MethodGet)
	r.HandleFunc("/api/cache", h.ClearCache).Methods(http.MethodDelete)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	})

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	return r
}

// pricingRequest builds a request from path variables and query parameters.
func pricingRequest(r *http.Request) pricing.Request {
	vars := mux.Vars(r)
	q := r.URL.Query()
	return pricing.Request{
		Style:        vars["style"],
		Color:        vars["color"],
		Size:         q.Get("size"),
		InventoryKey: q.Get("inventoryKey"),
		SizeIndex:    q.Get("sizeIndex"),
	}.Normalized()
}

// GetPricing handles GET /api/pricing[/{style}[/{color}]].
//
// Fresh pricing is a cacheable 200. Stale pricing is a 200 marked with
// X-Pricing-Source: stale and no-cache. Anything else is a 500 carrying
// default pricing.
func (h *Handler) GetPricing(w http.ResponseWriter, r *http.Request) {
	req := pricingRequest(r)
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "style, or inventoryKey and sizeIndex, are required", "invalid_request")
		return
	}

	q := r.URL.Query()
	opts := resolver.Options{
		AcceptStale: q.Get("stale") == "true",
		BypassCache: q.Get("refresh") == "true",
	}

	res := h.service.Resolve(r.Context(), req, opts)
	w.Header().Set(HeaderPricingSource, string(res.Source))

	switch res.Source {
	case pricing.SourceRemote, pricing.SourceCache:
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.pricingMaxAge.Seconds())))
		writeJSON(w, http.StatusOK, res.Result)

	case pricing.SourceStale:
		w.Header().Set("Cache-Control", "no-cache")
		if res.Err != nil {
			w.Header().Set("X-Pricing-Error", resolver.ErrorKind(res.Err))
		}
		writeJSON(w, http.StatusOK, res.Result)

	default:
		message := "pricing unavailable"
		if res.Err != nil {
			message = res.Err.Error()
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   true,
			Message: message,
			Kind:    resolver.ErrorKind(res.Err),
			Pricing: res.Result,
		})
	}
}

// InvalidatePricing handles DELETE /api/pricing[/{style}[/{color}]].
func (h *Handler) InvalidatePricing(w http.ResponseWriter, r *http.Request) {
	if !h.service.Invalidate(pricingRequest(r)) {
		writeError(w, http.StatusBadRequest, "style, or inventoryKey and sizeIndex, are required", "invalid_request")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetInventory handles GET /api/inventory/{style}.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	style := strings.TrimSpace(mux.Vars(r)["style"])
	if style == "" {
		writeError(w, http.StatusBadRequest, "style is required", "invalid_request")
		return
	}

	inv, source, err := h.service.Inventory(r.Context(), style)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, err.Error(), resolver.ErrorKind(err))
		return
	}

	w.Header().Set(HeaderPricingSource, string(source))
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.pricingMaxAge.Seconds())))
	writeJSON(w, http.StatusOK, inv)
}

// Autocomplete handles GET /api/autocomplete?q=. Styles starting with the
// query are returned upper-cased; queries under two characters get [].
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	query := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("q")))

	matches := []string{}
	if len(query) >= minQueryLength {
		for _, s := range h.styles {
			if strings.HasPrefix(s, query) {
				matches = append(matches, s)
			}
		}
		sort.Strings(matches)
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.autocompleteMaxAge.Seconds())))
	writeJSON(w, http.StatusOK, matches)
}

// CacheStats handles GET /api/cache.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.CacheStats())
}

// ClearCache handles DELETE /api/cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.service.ClearCaches()
	h.logger.Info().Msg("All server caches cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Ready handles GET /ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
