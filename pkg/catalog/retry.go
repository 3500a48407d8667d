package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	catalogRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_retries_total",
		Help: "Total number of catalog retry attempts by operation and error kind",
	}, []string{"operation", "kind"})

	catalogRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_retry_backoff_seconds",
		Help:    "Backoff duration before catalog retries by error kind",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8},
	}, []string{"kind"})

	catalogRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_retry_exhausted_total",
		Help: "Total number of catalog calls that exhausted their retry attempts",
	}, []string{"operation", "kind"})
)

// RetryPolicy holds the retry parameters of a client instance.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration

	// Multiplier is applied to the backoff after every retry.
	Multiplier float64

	// RetryableStatus lists the HTTP status codes treated as transient.
	RetryableStatus map[int]bool
}

// DefaultRetryPolicy returns three attempts starting at 0.5s, retrying
// 500, 502, 503 and 504.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     4 * time.Second,
		Multiplier:     2.0,
		RetryableStatus: map[int]bool{
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
	}
}

// Validate checks the policy for values that would break the retry loop.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be >= 1 (got %d)", p.MaxAttempts)
	}
	if p.InitialBackoff < 0 || p.MaxBackoff < 0 {
		return fmt.Errorf("retry backoff must not be negative")
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be >= 1 (got %v)", p.Multiplier)
	}
	return nil
}

// retryable reports whether err is transient under this policy. Server
// errors only qualify when their status is in RetryableStatus.
func (p RetryPolicy) retryable(err error) bool {
	var catErr *Error
	if !errors.As(err, &catErr) {
		return false
	}
	if !shouldRetry(catErr.Kind) {
		return false
	}
	if catErr.Kind == KindServer && catErr.StatusCode != 0 {
		return p.RetryableStatus[catErr.StatusCode]
	}
	return true
}

// nextBackoff applies the multiplier and the cap.
func (p RetryPolicy) nextBackoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * p.Multiplier)
	if p.MaxBackoff > 0 && next > p.MaxBackoff {
		next = p.MaxBackoff
	}
	return next
}

// Budget returns the longest a call can take under this policy when each
// attempt is bounded by attemptTimeout: every attempt times out and every
// backoff gets the maximum jitter.
func (p RetryPolicy) Budget(attemptTimeout time.Duration) time.Duration {
	total := time.Duration(p.MaxAttempts) * attemptTimeout
	backoff := p.InitialBackoff
	for i := 1; i < p.MaxAttempts; i++ {
		total += backoff + backoff/5
		backoff = p.nextBackoff(backoff)
	}
	return total
}

// retryWithBackoff executes fn until it succeeds, fails with a
// non-retryable error, or the policy's attempts are used up. Waits honour
// ctx and carry ±20% jitter.
func retryWithBackoff(ctx context.Context, policy RetryPolicy, op string, logger zerolog.Logger, fn func(attempt int) error) error {
	var lastErr error
	backoff := policy.InitialBackoff

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("operation", op).
					Int("attempt", attempt).
					Msg("Catalog call succeeded after retry")
			}
			return nil
		}

		lastErr = err
		kind := KindOf(err)

		if !policy.retryable(err) {
			return lastErr
		}

		if attempt >= policy.MaxAttempts {
			break
		}

		// The caller gave up; the per-attempt deadline is not the caller's.
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v: %w", ErrContextCancelled, ctx.Err(), lastErr)
		}

		catalogRetriesTotal.WithLabelValues(op, string(kind)).Inc()

		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		catalogRetryBackoffSeconds.WithLabelValues(string(kind)).Observe(jitter.Seconds())

		logger.Warn().
			Err(err).
			Str("operation", op).
			Str("kind", string(kind)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying catalog call after backoff")

		timer := time.NewTimer(jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("operation", op).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v: %w", ErrContextCancelled, ctx.Err(), lastErr)
		case <-timer.C:
		}

		backoff = policy.nextBackoff(backoff)
	}

	kind := KindOf(lastErr)
	catalogRetryExhaustedTotal.WithLabelValues(op, string(kind)).Inc()
	logger.Error().
		Err(lastErr).
		Str("operation", op).
		Str("kind", string(kind)).
		Int("max_attempts", policy.MaxAttempts).
		Msg("Catalog retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, policy.MaxAttempts, lastErr)
}
