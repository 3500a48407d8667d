// Command pricing-server serves apparel pricing and inventory over HTTP,
// backed by the remote SOAP catalog and in-process TTL caches.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/apparel-pricing/internal/api"
	"github.com/Sternrassler/apparel-pricing/internal/config"
	"github.com/Sternrassler/apparel-pricing/pkg/cache"
	"github.com/Sternrassler/apparel-pricing/pkg/catalog"
	"github.com/Sternrassler/apparel-pricing/pkg/logging"
	"github.com/Sternrassler/apparel-pricing/pkg/pricing"
	"github.com/Sternrassler/apparel-pricing/pkg/resolver"
	"github.com/Sternrassler/apparel-pricing/pkg/warmup"
	"github.com/rs/zerolog/log"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	if _, err := logging.Setup(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, Output: os.Stderr}); err != nil {
		log.Warn().Err(err).Msg("Falling back to info log level")
	}
	log.Info().Str("env", cfg.Env).Msg("Starting pricing server")

	// 3. Wire catalog client, caches, resolver and handler
	a, err := newApp(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		os.Exit(1)
	}
	if !cfg.HasCredentials() {
		log.Warn().Msg("Catalog credentials not configured; pricing requests will return default pricing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Background cache sweepers and warm-up
	a.start(ctx)

	// 5. HTTP server
	srv := a.httpServer()
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			os.Exit(1)
		}
	}()

	// 6. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 7. Stop sweepers, then drain HTTP
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// app is the wired server.
type app struct {
	cfg       *config.Config
	resolver  *resolver.Resolver
	display   *cache.Manager[*pricing.Result]
	secondary *cache.Manager[*pricing.Result]
	inventory *cache.Manager[pricing.Inventory]
	handler   http.Handler

	// lookupBudget is the longest one catalog lookup can take.
	lookupBudget time.Duration
}

func newApp(cfg *config.Config) (*app, error) {
	retry := catalog.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.Catalog.RetryMaxAttempts
	retry.InitialBackoff = cfg.Catalog.RetryInitialBackoff

	catalogClient, err := catalog.New(catalog.Config{
		Development:  cfg.Catalog.Development,
		PricingURL:   cfg.Catalog.PricingURL,
		InventoryURL: cfg.Catalog.InventoryURL,
		Credentials: catalog.Credentials{
			CustomerNumber: cfg.Catalog.CustomerNumber,
			Username:       cfg.Catalog.Username,
			Password:       cfg.Catalog.Password,
		},
		Timeout: cfg.Catalog.Timeout,
		Retry:   retry,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog client: %w", err)
	}
	budget := retry.Budget(cfg.Catalog.Timeout)

	var overrides *pricing.Overrides
	if cfg.OverridesFile != "" {
		if overrides, err = pricing.LoadOverrides(cfg.OverridesFile); err != nil {
			return nil, fmt.Errorf("price overrides: %w", err)
		}
		log.Info().Int("overrides", overrides.Len()).Str("file", cfg.OverridesFile).Msg("Price overrides loaded")
	}

	stale := cache.WithStaleRetention(cfg.Cache.StaleRetention)
	a := &app{
		cfg:          cfg,
		lookupBudget: budget,
		display:      cache.NewManager[*pricing.Result]("display", cfg.Cache.PricingTTL, stale),
		secondary:    cache.NewManager[*pricing.Result]("secondary", cfg.Cache.SecondaryTTL, stale),
		inventory:    cache.NewManager[pricing.Inventory]("inventory", cfg.Cache.InventoryTTL),
	}

	a.resolver, err = resolver.New(resolver.Config{
		Catalog:        catalogClient,
		Normalizer:     pricing.NewNormalizer(pricing.DefaultCaseSizes, logging.NewLogger(logging.ComponentResolver)),
		DisplayCache:   a.display,
		SecondaryCache: a.secondary,
		InventoryCache: a.inventory,
		Overrides:      overrides,
	})
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}

	h, err := api.NewHandler(api.Config{
		Service:            a.resolver,
		AutocompleteStyles: cfg.AutocompleteStyles,
		PricingMaxAge:      cfg.Cache.PricingTTL,
		Ready: func() error {
			if !catalogClient.HasCredentials() {
				return catalog.ErrMissingCredentials
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("api handler: %w", err)
	}
	a.handler = h.Routes()

	return a, nil
}

// httpServer returns the server for the wired handler. Its write timeout
// leaves room for a lookup that uses every catalog attempt.
func (a *app) httpServer() *http.Server {
	return &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      a.lookupBudget + 15*time.Second,
	}
}

// start launches the cache sweepers and, when configured, warms the
// display cache in the background.
func (a *app) start(ctx context.Context) {
	if interval := a.cfg.Cache.SweepInterval; interval > 0 {
		a.display.StartSweeper(ctx, interval)
		a.secondary.StartSweeper(ctx, interval)
		a.inventory.StartSweeper(ctx, interval)
	}

	reqs := warmup.ParseStyles(a.cfg.WarmStyles)
	if len(reqs) == 0 || !a.cfg.HasCredentials() {
		return
	}
	warmer := warmup.NewBatchWarmer(a.resolver, warmup.Config{Timeout: a.lookupBudget + 10*time.Second})
	go func() {
		if _, err := warmer.Run(ctx, reqs); err != nil {
			log.Warn().Err(err).Msg("Cache warm-up incomplete")
		}
	}()
}
