package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/apparel-pricing/internal/testutil"
)

var testCreds = Credentials{CustomerNumber: "12345", Username: "tester", Password: "secret"}

func newTestClient(t *testing.T, mock *testutil.MockCatalog) *Client {
	t.Helper()
	cfg := DefaultConfig(testCreds)
	cfg.PricingURL = mock.PricingURL()
	cfg.InventoryURL = mock.InventoryURL()
	cfg.Retry = fastPolicy()
	cfg.Timeout = 2 * time.Second

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default config", func(*Config) {}, false},
		{"missing credentials still builds", func(c *Config) { c.Credentials = Credentials{} }, false},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"invalid retry policy", func(c *Config) { c.Retry.MaxAttempts = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(testCreds)
			tt.mutate(&cfg)
			_, err := New(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_EndpointSelection(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"production", Config{}, ProductionPricingURL},
		{"development", Config{Development: true}, DevelopmentPricingURL},
		{"override wins", Config{Development: true, PricingURL: "http://localhost:9999"}, "http://localhost:9999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(testCreds)
			cfg.Development = tt.cfg.Development
			cfg.PricingURL = tt.cfg.PricingURL
			c, err := New(cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := c.PricingURL(); got != tt.want {
				t.Errorf("PricingURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetPricing_Success(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	mock.SetPricing(
		testutil.PriceRow{Style: "PC61", Color: "White", Size: "M", PiecePrice: "2.84", CasePrice: "2.50"},
		testutil.PriceRow{Style: "PC61", Color: "White", Size: "2XL", PiecePrice: "3.61", SalePrice: "2.88",
			SaleStartDate: "2024-03-01", SaleEndDate: "2024-03-31T00:00:00-05:00", CaseSize: "36"},
	)

	c := newTestClient(t, mock)
	resp, err := c.GetPricing(context.Background(), PricingQuery{Style: "PC61", Color: "White"})
	if err != nil {
		t.Fatalf("GetPricing() error = %v", err)
	}

	if len(resp.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(resp.Items))
	}
	m := resp.Items[0]
	if m.Size != "M" || m.PiecePrice.Decimal.String() != "2.84" || !m.PiecePrice.Valid {
		t.Errorf("unexpected M item: %+v", m)
	}
	if m.SalePrice.Valid {
		t.Error("M should have no sale price")
	}

	xxl := resp.Items[1]
	if xxl.SalePrice.Decimal.String() != "2.88" {
		t.Errorf("2XL salePrice = %s, want 2.88", xxl.SalePrice.Decimal)
	}
	if xxl.CaseSize != 36 {
		t.Errorf("2XL caseSize = %d, want 36", xxl.CaseSize)
	}
	if xxl.SaleStartDate == nil || xxl.SaleStartDate.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("2XL saleStartDate = %v", xxl.SaleStartDate)
	}
	if xxl.SaleEndDate == nil {
		t.Error("2XL saleEndDate should be parsed")
	}
}

func TestGetPricing_SendsAllFields(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetPricing(testutil.PriceRow{Size: "M", PiecePrice: "1.00"})

	c := newTestClient(t, mock)

	tests := []struct {
		name     string
		query    PricingQuery
		present  []string
		emptyTag []string
	}{
		{
			name:     "style family",
			query:    PricingQuery{Style: "PC61", Color: "White"},
			present:  []string{"<style>PC61</style>", "<color>White</color>"},
			emptyTag: []string{"<inventoryKey></inventoryKey>", "<sizeIndex></sizeIndex>", "<size></size>"},
		},
		{
			name:     "inventory key family",
			query:    PricingQuery{Style: "ignored", InventoryKey: "1234", SizeIndex: "3", ByInventoryKey: true},
			present:  []string{"<inventoryKey>1234</inventoryKey>", "<sizeIndex>3</sizeIndex>"},
			emptyTag: []string{"<style></style>", "<color></color>", "<size></size>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.GetPricing(context.Background(), tt.query); err != nil {
				t.Fatalf("GetPricing() error = %v", err)
			}
			body := mock.LastBody(testutil.PricingPath)
			for _, want := range append(tt.present, tt.emptyTag...) {
				if !strings.Contains(body, want) {
					t.Errorf("request body missing %s", want)
				}
			}
			for _, tag := range []string{"casePrice", "dozenPrice", "piecePrice", "salePrice", "myPrice"} {
				if !strings.Contains(body, "<"+tag+"></"+tag+">") {
					t.Errorf("request body missing empty <%s>", tag)
				}
			}
			if !strings.Contains(body, "<sanMarCustomerNumber>12345</sanMarCustomerNumber>") {
				t.Error("request body missing customer number")
			}
		})
	}
}

func TestGetPricing_MissingCredentials(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	cfg := DefaultConfig(Credentials{Username: "only-user"})
	cfg.PricingURL = mock.PricingURL()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.GetPricing(context.Background(), PricingQuery{Style: "PC61"})
	if KindOf(err) != KindConfiguration {
		t.Errorf("KindOf = %q, want configuration", KindOf(err))
	}
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	if mock.RequestCount(testutil.PricingPath) != 0 {
		t.Error("no request should be sent without credentials")
	}
}

func TestGetPricing_RemoteError(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.Queue(testutil.PricingPath, testutil.NewPricingErrorResponse("Style not found"))

	c := newTestClient(t, mock)
	_, err := c.GetPricing(context.Background(), PricingQuery{Style: "NOPE"})

	var catErr *Error
	if !errors.As(err, &catErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if catErr.Kind != KindRemote || catErr.Message != "Style not found" {
		t.Errorf("got kind %q message %q", catErr.Kind, catErr.Message)
	}
	if n := mock.RequestCount(testutil.PricingPath); n != 1 {
		t.Errorf("remote errors must not be retried, got %d requests", n)
	}
}

func TestGetPricing_RetryThenSuccess(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.Queue(testutil.PricingPath,
		testutil.NewServerErrorResponse(),
		testutil.NewServerErrorResponse(),
		testutil.NewPricingResponse(testutil.PriceRow{Size: "M", PiecePrice: "2.84"}),
	)

	c := newTestClient(t, mock)
	resp, err := c.GetPricing(context.Background(), PricingQuery{Style: "PC61"})
	if err != nil {
		t.Fatalf("GetPricing() error = %v", err)
	}
	if len(resp.Items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(resp.Items))
	}
	if n := mock.RequestCount(testutil.PricingPath); n != 3 {
		t.Errorf("Expected 3 requests, got %d", n)
	}
}

func TestGetPricing_ClientErrorNoRetry(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.Queue(testutil.PricingPath, testutil.MockResponse{StatusCode: http.StatusUnauthorized})

	c := newTestClient(t, mock)
	_, err := c.GetPricing(context.Background(), PricingQuery{Style: "PC61"})

	if KindOf(err) != KindClient {
		t.Errorf("KindOf = %q, want client", KindOf(err))
	}
	if n := mock.RequestCount(testutil.PricingPath); n != 1 {
		t.Errorf("Expected 1 request, got %d", n)
	}
}

func TestGetPricing_FaultIsNotRetried(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.Queue(testutil.PricingPath, testutil.NewFaultResponse("Invalid credentials"))

	c := newTestClient(t, mock)
	_, err := c.GetPricing(context.Background(), PricingQuery{Style: "PC61"})

	if !IsRemote(err) {
		t.Errorf("expected remote error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid credentials") {
		t.Errorf("fault string missing from %q", err.Error())
	}
	if n := mock.RequestCount(testutil.PricingPath); n != 1 {
		t.Errorf("Expected 1 request, got %d", n)
	}
}

func TestGetPricing_TimeoutExhaustsRetries(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.Queue(testutil.PricingPath, testutil.MockResponse{StatusCode: http.StatusOK, Delay: 500 * time.Millisecond})

	cfg := DefaultConfig(testCreds)
	cfg.PricingURL = mock.PricingURL()
	cfg.Retry = fastPolicy()
	cfg.Timeout = 50 * time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.GetPricing(context.Background(), PricingQuery{Style: "PC61"})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
	if KindOf(err) != KindTimeout {
		t.Errorf("KindOf = %q, want timeout", KindOf(err))
	}
	if n := mock.RequestCount(testutil.PricingPath); n != 3 {
		t.Errorf("Expected 3 attempts, got %d", n)
	}
}

func TestGetPricing_ParseError(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetPricing(testutil.PriceRow{Size: "M", PiecePrice: "two dollars"})

	c := newTestClient(t, mock)
	_, err := c.GetPricing(context.Background(), PricingQuery{Style: "PC61"})

	if KindOf(err) != KindParse {
		t.Errorf("KindOf = %q, want parse", KindOf(err))
	}
}

func TestGetInventoryLevels(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetInventory(
		testutil.StockRow{Color: "White", Size: "M", Warehouses: map[string]int{"1": 120, "2": 30}},
		testutil.StockRow{Color: "Black", Size: "L", Warehouses: map[string]int{"1": 5}},
	)

	c := newTestClient(t, mock)
	resp, err := c.GetInventoryLevels(context.Background(), "PC61")
	if err != nil {
		t.Fatalf("GetInventoryLevels() error = %v", err)
	}
	if resp.Style != "PC61" || len(resp.Items) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	total := 0
	for _, loc := range resp.Items[0].Locations {
		total += loc.Quantity
	}
	if total != 150 {
		t.Errorf("White/M total = %d, want 150", total)
	}

	body := mock.LastBody(testutil.InventoryPath)
	if !strings.Contains(body, "<productId>PC61</productId>") {
		t.Error("request body missing productId")
	}
}
