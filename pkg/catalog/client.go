// Package catalog is the SOAP client for the remote price and inventory
// service, with per-attempt timeouts and a configurable retry policy.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/apparel-pricing/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const (
	// ProductionPricingURL is the live getPricing endpoint.
	ProductionPricingURL = "https://ws.sanmar.com:8080/SanMarWebService/SanMarPricingServicePort"
	// DevelopmentPricingURL is the test getPricing endpoint.
	DevelopmentPricingURL = "https://edev-ws.sanmar.com:8080/SanMarWebService/SanMarPricingServicePort"
	// ProductionInventoryURL is the live getInventoryLevels endpoint.
	ProductionInventoryURL = "https://ws.sanmar.com:8080/promostandards/InventoryServiceBindingV2final"
	// DevelopmentInventoryURL is the test getInventoryLevels endpoint.
	DevelopmentInventoryURL = "https://edev-ws.sanmar.com:8080/promostandards/InventoryServiceBindingV2final"

	opPricing   = "getPricing"
	opInventory = "getInventoryLevels"

	// maxResponseBytes bounds how much of a reply is read into memory.
	maxResponseBytes = 8 << 20
)

// Prometheus metrics for catalog client operations.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog requests by operation and status",
	}, []string{"operation", "status"})

	catalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog attempt duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"operation"})

	catalogErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Total catalog errors by operation and kind",
	}, []string{"operation", "kind"})
)

// Client talks to the remote catalog service.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Development selects the development endpoints instead of production.
	Development bool

	// PricingURL and InventoryURL override the environment's endpoints.
	PricingURL   string
	InventoryURL string

	// Credentials are sent with every call. Missing values fail each
	// call with a configuration error; they never fail New.
	Credentials Credentials

	// Timeout bounds a single attempt. Backoff waits are not counted.
	Timeout time.Duration

	// Retry is the retry policy for transient failures.
	Retry RetryPolicy

	// HTTPClient is optional; a client without its own timeout is used by default.
	HTTPClient *http.Client
}

// DefaultConfig returns a production configuration with the given credentials.
func DefaultConfig(creds Credentials) Config {
	return Config{
		Credentials: creds,
		Timeout:     30 * time.Second,
		Retry:       DefaultRetryPolicy(),
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, err
	}

	if cfg.PricingURL == "" {
		cfg.PricingURL = ProductionPricingURL
		if cfg.Development {
			cfg.PricingURL = DevelopmentPricingURL
		}
	}
	if cfg.InventoryURL == "" {
		cfg.InventoryURL = ProductionInventoryURL
		if cfg.Development {
			cfg.InventoryURL = DevelopmentInventoryURL
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// Per-attempt deadlines come from the request context.
		httpClient = &http.Client{}
	}

	logger := logging.NewLogger(logging.ComponentCatalog)
	logger.Info().
		Bool("development", cfg.Development).
		Str("pricing_url", cfg.PricingURL).
		Str("inventory_url", cfg.InventoryURL).
		Bool("credentials", cfg.Credentials.Complete()).
		Msg("Catalog client configured")

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the credential triple is configured.
func (c *Client) HasCredentials() bool {
	return c.config.Credentials.Complete()
}

// PricingURL returns the resolved getPricing endpoint.
func (c *Client) PricingURL() string {
	return c.config.PricingURL
}

// GetPricing calls getPricing with the query's identifier family.
func (c *Client) GetPricing(ctx context.Context, q PricingQuery) (*PricingResponse, error) {
	if !c.HasCredentials() {
		return nil, c.configurationError(opPricing)
	}
	if q.ByInventoryKey {
		if q.InventoryKey == "" || q.SizeIndex == "" {
			return nil, &Error{Kind: KindClient, Op: opPricing, Message: "inventoryKey and sizeIndex are both required"}
		}
	} else if q.Style == "" {
		return nil, &Error{Kind: KindClient, Op: opPricing, Message: "style is required"}
	}

	payload, err := buildPricingRequest(q, c.config.Credentials)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("style", q.Style).
		Str("color", q.Color).
		Str("size", q.Size).
		Bool("by_inventory_key", q.ByInventoryKey).
		Msg("Requesting pricing")

	var resp *PricingResponse
	err = retryWithBackoff(ctx, c.config.Retry, opPricing, c.logger, func(attempt int) error {
		body, err := c.call(ctx, opPricing, c.config.PricingURL, payload)
		if err != nil {
			return err
		}
		resp, err = translatePricing(body)
		return err
	})
	if err != nil {
		catalogErrorsTotal.WithLabelValues(opPricing, string(KindOf(err))).Inc()
		return nil, err
	}

	c.logger.Debug().
		Str("style", q.Style).
		Int("items", len(resp.Items)).
		Msg("Pricing received")
	return resp, nil
}

// GetInventoryLevels calls getInventoryLevels for one style.
func (c *Client) GetInventoryLevels(ctx context.Context, style string) (*InventoryResponse, error) {
	if !c.HasCredentials() {
		return nil, c.configurationError(opInventory)
	}
	if style == "" {
		return nil, &Error{Kind: KindClient, Op: opInventory, Message: "style is required"}
	}

	payload, err := buildInventoryRequest(style, c.config.Credentials)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("style", style).Msg("Requesting inventory levels")

	var resp *InventoryResponse
	err = retryWithBackoff(ctx, c.config.Retry, opInventory, c.logger, func(attempt int) error {
		body, err := c.call(ctx, opInventory, c.config.InventoryURL, payload)
		if err != nil {
			return err
		}
		resp, err = translateInventory(style, body)
		return err
	})
	if err != nil {
		catalogErrorsTotal.WithLabelValues(opInventory, string(KindOf(err))).Inc()
		return nil, err
	}
	return resp, nil
}

// call performs one attempt bounded by Config.Timeout and classifies the
// outcome. A successful return carries the raw response body.
func (c *Client) call(ctx context.Context, op, url string, payload []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	startTime := time.Now()
	defer func() {
		catalogRequestDuration.WithLabelValues(op).Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `""`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := classifyTransportError(attemptCtx, err)
		catalogRequestsTotal.WithLabelValues(op, string(kind)).Inc()
		return nil, &Error{Kind: kind, Op: op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		kind := classifyTransportError(attemptCtx, err)
		catalogRequestsTotal.WithLabelValues(op, string(kind)).Inc()
		return nil, &Error{Kind: kind, Op: op, StatusCode: resp.StatusCode, Message: "read response body", Err: err}
	}

	catalogRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 500:
		// SOAP 1.1 reports business faults with a 500; those are final.
		if f := faultOf(body); f != nil {
			return nil, &Error{Kind: KindRemote, Op: op, StatusCode: resp.StatusCode, Message: faultMessage(f)}
		}
		return nil, &Error{Kind: KindServer, Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	default:
		return nil, &Error{Kind: KindClient, Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
}

func (c *Client) configurationError(op string) error {
	c.logger.Error().Str("operation", op).Msg("Catalog credentials not configured")
	return &Error{Kind: KindConfiguration, Op: op, Message: "customer number, username and password are required", Err: ErrMissingCredentials}
}

// classifyTransportError separates attempt timeouts from other network failures.
func classifyTransportError(attemptCtx context.Context, err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
