package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sternrassler/apparel-pricing/internal/testutil"
	"github.com/Sternrassler/apparel-pricing/pkg/cache"
	"github.com/Sternrassler/apparel-pricing/pkg/catalog"
	"github.com/Sternrassler/apparel-pricing/pkg/pricing"
	"github.com/Sternrassler/apparel-pricing/pkg/pricingclient"
	"github.com/Sternrassler/apparel-pricing/pkg/resolver"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stack is the full server pipeline against a mock catalog.
type stack struct {
	mock   *testutil.MockCatalog
	server *httptest.Server
}

func newStack(t *testing.T, creds catalog.Credentials, timeout time.Duration) *stack {
	t.Helper()
	mock := testutil.NewMockCatalog()
	t.Cleanup(mock.Close)

	client, err := catalog.New(catalog.Config{
		PricingURL:   mock.PricingURL(),
		InventoryURL: mock.InventoryURL(),
		Credentials:  creds,
		Timeout:      timeout,
		Retry: catalog.RetryPolicy{
			MaxAttempts:     3,
			InitialBackoff:  10 * time.Millisecond,
			MaxBackoff:      40 * time.Millisecond,
			Multiplier:      2,
			RetryableStatus: catalog.DefaultRetryPolicy().RetryableStatus,
		},
	})
	require.NoError(t, err)

	res, err := resolver.New(resolver.Config{
		Catalog:        client,
		Normalizer:     pricing.NewNormalizer(pricing.DefaultCaseSizes, zerolog.Nop()),
		DisplayCache:   cache.NewManager[*pricing.Result]("display", 15*time.Minute, cache.WithStaleRetention(time.Hour)),
		SecondaryCache: cache.NewManager[*pricing.Result]("secondary", time.Hour),
		InventoryCache: cache.NewManager[pricing.Inventory]("inventory", 15*time.Minute),
	})
	require.NoError(t, err)

	h, err := NewHandler(Config{Service: res, AutocompleteStyles: []string{"PC61"}})
	require.NoError(t, err)

	server := httptest.NewServer(h.Routes())
	t.Cleanup(server.Close)
	return &stack{mock: mock, server: server}
}

var e2eCreds = catalog.Credentials{CustomerNumber: "12345", Username: "tester", Password: "secret"}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestEndToEnd_PricingServedAndCached(t *testing.T) {
	s := newStack(t, e2eCreds, 2*time.Second)
	s.mock.SetPricing(
		testutil.PriceRow{Style: "PC61", Color: "White", Size: "XL", PiecePrice: "2.84"},
		testutil.PriceRow{Style: "PC61", Color: "White", Size: "S", PiecePrice: "2.84"},
		testutil.PriceRow{Style: "PC61", Color: "White", Size: "2XL", PiecePrice: "3.61", SalePrice: "2.88"},
		testutil.PriceRow{Style: "PC61", Color: "White", Size: "M", PiecePrice: "2.84"},
		testutil.PriceRow{Style: "PC61", Color: "White", Size: "L", PiecePrice: "2.84"},
	)

	resp, body := get(t, s.server.URL+"/api/pricing/PC61/White")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "public, max-age=900", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "remote", resp.Header.Get(HeaderPricingSource))

	var result pricing.Result
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, []string{"S", "M", "L", "XL", "2XL"}, result.Sizes)
	assert.True(t, result.Meta.HasSale)

	rec, ok := result.Record("2XL")
	require.True(t, ok)
	assert.Equal(t, "3.61", rec.OriginalPrice.String())
	assert.Equal(t, "2.88", rec.SalePrice.String())

	resp, body = get(t, s.server.URL+"/api/pricing/pc61/white")
	assert.Equal(t, "cache", resp.Header.Get(HeaderPricingSource))
	var cached pricing.Result
	require.NoError(t, json.Unmarshal(body, &cached))
	assert.Equal(t, pricing.SourceCache, cached.Source, "body and header agree")
	assert.Equal(t, 1, s.mock.RequestCount(testutil.PricingPath))
}

// A catalog that never answers within the attempt timeout yields default
// pricing with an error flag and a 500 after three attempts.
func TestEndToEnd_TimeoutServesDefault(t *testing.T) {
	s := newStack(t, e2eCreds, 50*time.Millisecond)
	s.mock.Queue(testutil.PricingPath, testutil.MockResponse{StatusCode: http.StatusOK, Delay: 300 * time.Millisecond})

	resp, body := get(t, s.server.URL+"/api/pricing/PC61/White")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 3, s.mock.RequestCount(testutil.PricingPath))

	var payload struct {
		Error   bool            `json:"error"`
		Message string          `json:"message"`
		Kind    string          `json:"kind"`
		Pricing *pricing.Result `json:"pricing"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.True(t, payload.Error)
	assert.Equal(t, "timeout", payload.Kind)
	require.NotNil(t, payload.Pricing)
	assert.Equal(t, pricing.SourceDefault, payload.Pricing.Source)
	assert.NotEmpty(t, payload.Pricing.Sizes)
}

func TestEndToEnd_MissingCredentials(t *testing.T) {
	s := newStack(t, catalog.Credentials{}, time.Second)

	resp, body := get(t, s.server.URL+"/api/pricing/PC61/White")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), `"kind":"configuration"`)
	assert.Equal(t, 0, s.mock.RequestCount(testutil.PricingPath))
}

func TestEndToEnd_RemoteErrorNotRetried(t *testing.T) {
	s := newStack(t, e2eCreds, time.Second)
	s.mock.Queue(testutil.PricingPath, testutil.NewPricingErrorResponse("Invalid style"))

	resp, body := get(t, s.server.URL+"/api/pricing/NOPE")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "Invalid style")
	assert.Equal(t, 1, s.mock.RequestCount(testutil.PricingPath))
}

func TestEndToEnd_Inventory(t *testing.T) {
	s := newStack(t, e2eCreds, time.Second)
	s.mock.SetInventory(
		testutil.StockRow{Color: "White", Size: "M", Warehouses: map[string]int{"1": 10, "2": 5}},
		testutil.StockRow{Color: "White", Size: "L", Warehouses: map[string]int{"1": 3}},
	)

	resp, body := get(t, s.server.URL+"/api/inventory/PC61")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var inv pricing.Inventory
	require.NoError(t, json.Unmarshal(body, &inv))
	assert.Equal(t, 15, inv["White"]["M"].Total)
	assert.Equal(t, 18, inv.Total("White"))
}

// The client tier mirrors server responses and never stores defaults.
func TestEndToEnd_ClientTier(t *testing.T) {
	s := newStack(t, e2eCreds, time.Second)
	s.mock.SetPricing(testutil.PriceRow{Style: "PC61", Color: "White", Size: "M", PiecePrice: "2.84"})

	store, err := pricingclient.NewStore(pricingclient.StoreConfig{
		Storage: pricingclient.NewMemoryStorage(0),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	client, err := pricingclient.New(pricingclient.Config{BaseURL: s.server.URL, Store: store})
	require.NoError(t, err)

	ctx := context.Background()
	req := pricing.Request{Style: "PC61", Color: "White"}

	first, err := client.Pricing(ctx, req, pricingclient.PricingOptions{})
	require.NoError(t, err)
	assert.Equal(t, "remote", first.Source)

	second, err := client.Pricing(ctx, req, pricingclient.PricingOptions{})
	require.NoError(t, err)
	assert.Equal(t, pricingclient.SourceClientCache, second.Source)
	assert.Equal(t, 1, s.mock.RequestCount(testutil.PricingPath))

	suggestions, _, err := client.Autocomplete(ctx, "pc")
	require.NoError(t, err)
	assert.Equal(t, []string{"PC61"}, suggestions)
}
