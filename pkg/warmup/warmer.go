// Package warmup pre-populates pricing caches for a list of styles using a
// bounded worker pool.
package warmup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/apparel-pricing/pkg/logging"
	"github.com/Sternrassler/apparel-pricing/pkg/pricing"
	"github.com/rs/zerolog"
)

// Config holds batch warmer configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel lookups. The remote
	// catalog is a shared SOAP service, so keep this small.
	MaxConcurrency int

	// Timeout bounds each lookup.
	Timeout time.Duration
}

// DefaultConfig returns 4 workers and a 30s per-item timeout.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}

// Warmer loads one request into a cache.
type Warmer interface {
	Warm(ctx context.Context, req pricing.Request) error
}

// WarmerFunc adapts a function to the Warmer interface.
type WarmerFunc func(ctx context.Context, req pricing.Request) error

// Warm calls f.
func (f WarmerFunc) Warm(ctx context.Context, req pricing.Request) error {
	return f(ctx, req)
}

// Result is the outcome of warming one request.
type Result struct {
	Request pricing.Request
	Err     error
}

// Report summarizes a batch.
type Report struct {
	Total    int
	Warmed   int
	Failed   []Result
	Duration time.Duration
}

// BatchWarmer warms many requests in parallel.
type BatchWarmer struct {
	warmer Warmer
	config Config
	logger zerolog.Logger
}

// NewBatchWarmer creates a batch warmer. Zero config values take their defaults.
func NewBatchWarmer(warmer Warmer, config Config) *BatchWarmer {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	return &BatchWarmer{
		warmer: warmer,
		config: config,
		logger: logging.NewLogger(logging.ComponentWarmup),
	}
}

// Run warms every request. Individual failures are collected in the report;
// an error is returned only when ctx ends before the batch is done.
func (bw *BatchWarmer) Run(ctx context.Context, reqs []pricing.Request) (*Report, error) {
	start := time.Now()
	report := &Report{Total: len(reqs)}
	if len(reqs) == 0 {
		return report, nil
	}

	bw.logger.Info().
		Int("requests", len(reqs)).
		Int("workers", bw.config.MaxConcurrency).
		Msg("Starting cache warm-up")

	queue := make(chan pricing.Request, len(reqs))
	for _, req := range reqs {
		queue <- req
	}
	close(queue)

	results := make(chan Result, len(reqs))

	var wg sync.WaitGroup
	workers := min(bw.config.MaxConcurrency, len(reqs))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bw.worker(ctx, queue, results, &wg, i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.Err != nil {
			report.Failed = append(report.Failed, res)
			continue
		}
		report.Warmed++
	}
	report.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		bw.logger.Warn().
			Int("warmed", report.Warmed).
			Int("total", report.Total).
			Msg("Warm-up interrupted")
		return report, fmt.Errorf("warm-up interrupted (%d/%d warmed): %w", report.Warmed, report.Total, err)
	}

	bw.logger.Info().
		Int("warmed", report.Warmed).
		Int("failed", len(report.Failed)).
		Dur("duration", report.Duration).
		Msg("Warm-up complete")
	return report, nil
}

func (bw *BatchWarmer) worker(ctx context.Context, queue <-chan pricing.Request, results chan<- Result, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for req := range queue {
		select {
		case <-ctx.Done():
			bw.logger.Debug().
				Int("worker_id", workerID).
				Int("processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		itemCtx, cancel := context.WithTimeout(ctx, bw.config.Timeout)
		err := bw.warmer.Warm(itemCtx, req)
		cancel()

		if err != nil {
			bw.logger.Warn().
				Err(err).
				Int("worker_id", workerID).
				Str("style", req.Style).
				Str("color", req.Color).
				Msg("Warm-up lookup failed")
		}
		results <- Result{Request: req, Err: err}
		processed++
	}
}

// ParseStyles turns a comma separated list such as "PC61/White,J790" into
// requests. Blank items are skipped.
func ParseStyles(list string) []pricing.Request {
	var reqs []pricing.Request
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		style, color, _ := strings.Cut(item, "/")
		req := pricing.Request{Style: strings.TrimSpace(style), Color: strings.TrimSpace(color)}
		if req.Style == "" {
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs
}
