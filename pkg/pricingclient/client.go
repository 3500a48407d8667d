// Package pricingclient is the client side of the pricing API. It mirrors
// responses into a persistent Store so fresh data is served without a
// network round-trip.
package pricingclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/apparel-pricing/pkg/logging"
	"github.com/Sternrassler/apparel-pricing/pkg/pricing"
	"github.com/rs/zerolog"
)

// SourceClientCache marks a lookup answered from the client-tier store.
const SourceClientCache = "client-cache"

// APIError is a non-2xx reply of the pricing API.
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("pricing api error (status %d, %s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("pricing api error (status %d): %s", e.StatusCode, e.Message)
}

// errorPayload is the body of a failed pricing call.
type errorPayload struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Pricing *pricing.Result `json:"pricing"`
}

// PricingLookup is the outcome of Client.Pricing.
type PricingLookup struct {
	Result *pricing.Result

	// Source is SourceClientCache or the server's X-Pricing-Source value.
	Source string
}

// PricingOptions tune a pricing lookup.
type PricingOptions struct {
	// Refresh skips both cache tiers.
	Refresh bool

	// AcceptStale lets the server answer with stale pricing on failure.
	AcceptStale bool
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the pricing API root, e.g. http://localhost:8080.
	BaseURL string

	// Store is optional; without it every call goes to the network.
	Store *Store

	// Timeout bounds each HTTP call.
	Timeout time.Duration

	HTTPClient *http.Client
}

// Client calls the pricing API, never the remote catalog.
type Client struct {
	baseURL    *url.URL
	store      *Store
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    base,
		store:      cfg.Store,
		httpClient: httpClient,
		logger:     logging.NewLogger(logging.ComponentPricingClient),
	}, nil
}

// Pricing returns pricing for req. When the server answers 500 with its
// fallback payload, the default result is returned together with an
// *APIError. Default and stale pricing are never stored client side.
func (c *Client) Pricing(ctx context.Context, req pricing.Request, opts PricingOptions) (*PricingLookup, error) {
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := clientKey(req)

	if c.store != nil && !opts.Refresh {
		var cached pricing.Result
		if err := c.store.Get(ctx, KindPricing, key, &cached); err == nil {
			c.logger.Debug().Str("key", key).Msg("Pricing served from client cache")
			return &PricingLookup{Result: &cached, Source: SourceClientCache}, nil
		}
	}

	u := c.pricingURL(req, opts)
	resp, body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var result pricing.Result
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decode pricing: %w", err)
		}
		source := resp.Header.Get("X-Pricing-Source")
		if source == "" {
			source = string(result.Source)
		}
		if c.store != nil && source != string(pricing.SourceStale) && result.Source != pricing.SourceDefault {
			if err := c.store.Set(ctx, KindPricing, key, &result); err != nil {
				c.logger.Warn().Err(err).Str("key", key).Msg("Client cache write failed")
			}
		}
		return &PricingLookup{Result: &result, Source: source}, nil

	case resp.StatusCode == http.StatusInternalServerError:
		var payload errorPayload
		if err := json.Unmarshal(body, &payload); err != nil || payload.Pricing == nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: payload.Message, Kind: payload.Kind}
		return &PricingLookup{Result: payload.Pricing, Source: string(pricing.SourceDefault)}, apiErr

	default:
		return nil, decodeAPIError(resp.StatusCode, body)
	}
}

// Inventory returns the stock of style.
func (c *Client) Inventory(ctx context.Context, style string) (pricing.Inventory, error) {
	style = strings.TrimSpace(style)
	if style == "" {
		return nil, fmt.Errorf("style is required")
	}

	if c.store != nil {
		var cached pricing.Inventory
		if err := c.store.Get(ctx, KindInventory, style, &cached); err == nil {
			return cached, nil
		}
	}

	u := c.baseURL.JoinPath("api", "inventory", style)
	resp, body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	var inv pricing.Inventory
	if err := json.Unmarshal(body, &inv); err != nil {
		return nil, fmt.Errorf("decode inventory: %w", err)
	}
	if c.store != nil {
		if err := c.store.Set(ctx, KindInventory, style, inv); err != nil {
			c.logger.Warn().Err(err).Str("style", style).Msg("Client cache write failed")
		}
	}
	return inv, nil
}

// Autocomplete returns style suggestions for query. degraded is set when
// the answer was derived from a cached shorter prefix. Queries shorter than
// two characters return nothing.
func (c *Client) Autocomplete(ctx context.Context, query string) (suggestions []string, degraded bool, err error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []string{}, false, nil
	}

	if c.store != nil {
		if s, degraded, err := c.store.GetSuggestions(ctx, query); err == nil {
			return s, degraded, nil
		}
	}

	u := c.baseURL.JoinPath("api", "autocomplete")
	u.RawQuery = url.Values{"q": []string{query}}.Encode()
	resp, body, err := c.get(ctx, u)
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, decodeAPIError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &suggestions); err != nil {
		return nil, false, fmt.Errorf("decode suggestions: %w", err)
	}
	if c.store != nil {
		if err := c.store.Set(ctx, KindAutocomplete, query, suggestions); err != nil {
			c.logger.Warn().Err(err).Str("query", query).Msg("Client cache write failed")
		}
	}
	return suggestions, false, nil
}

// Invalidate asks the server to drop its cached pricing of req and removes
// the client copy.
func (c *Client) Invalidate(ctx context.Context, req pricing.Request) error {
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return err
	}
	if c.store != nil {
		if err := c.store.Delete(ctx, KindPricing, clientKey(req)); err != nil {
			c.logger.Warn().Err(err).Msg("Client cache delete failed")
		}
	}

	u := c.pricingURL(req, PricingOptions{})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, body)
	}
	return nil
}

func (c *Client) pricingURL(req pricing.Request, opts PricingOptions) *url.URL {
	var u *url.URL
	switch {
	case req.Style != "" && req.Color != "":
		u = c.baseURL.JoinPath("api", "pricing", req.Style, req.Color)
	case req.Style != "":
		u = c.baseURL.JoinPath("api", "pricing", req.Style)
	default:
		u = c.baseURL.JoinPath("api", "pricing")
	}

	q := url.Values{}
	if req.Size != "" {
		q.Set("size", req.Size)
	}
	if req.InventoryKey != "" {
		q.Set("inventoryKey", req.InventoryKey)
	}
	if req.SizeIndex != "" {
		q.Set("sizeIndex", req.SizeIndex)
	}
	if opts.Refresh {
		q.Set("refresh", "true")
	}
	if opts.AcceptStale {
		q.Set("stale", "true")
	}
	u.RawQuery = q.Encode()
	return u
}

func (c *Client) get(ctx context.Context, u *url.URL) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("GET %s: %w", u.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	return resp, body, nil
}

func decodeAPIError(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
		Kind    string `json:"kind"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{StatusCode: status, Message: payload.Message, Kind: payload.Kind}
}

// clientKey mirrors the server key layout.
func clientKey(req pricing.Request) string {
	if req.Family() == pricing.FamilyInventoryKey {
		return req.InventoryKey + "_" + req.SizeIndex
	}
	parts := []string{req.Style}
	if req.Color != "" {
		parts = append(parts, req.Color)
	}
	if req.Size != "" {
		parts = append(parts, req.Size)
	}
	return strings.Join(parts, "_")
}

// IsAPIError reports whether err is an *APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Warm fetches req through the API so both cache tiers hold it.
func (c *Client) Warm(ctx context.Context, req pricing.Request) error {
	_, err := c.Pricing(ctx, req, PricingOptions{})
	return err
}
