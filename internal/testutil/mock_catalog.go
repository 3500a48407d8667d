// Package testutil provides testing utilities for the pricing service.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Paths served by MockCatalog.
const (
	PricingPath   = "/SanMarWebService/SanMarPricingServicePort"
	InventoryPath = "/promostandards/InventoryServiceBindingV2final"
)

// MockResponse defines the behavior for a mock catalog reply.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// PriceRow is one listResponse element. Empty fields are omitted from the
// generated XML so tests can model absent values.
type PriceRow struct {
	Style, Color, Size                string
	PiecePrice, DozenPrice, CasePrice string
	SalePrice, MyPrice                string
	SaleStartDate, SaleEndDate        string
	CaseSize                          string
}

// StockRow is one Inventory element.
type StockRow struct {
	Color, Size string
	Warehouses  map[string]int
}

// MockCatalog is a configurable SOAP catalog server for testing. Responses
// queued per path are served in order; the last one repeats.
type MockCatalog struct {
	server *httptest.Server
	mu     sync.Mutex
	queues map[string][]MockResponse

	requestCount map[string]int
	lastBody     map[string]string
}

// NewMockCatalog creates a new mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		queues:       make(map[string][]MockResponse),
		requestCount: make(map[string]int),
		lastBody:     make(map[string]string),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.requestCount[r.URL.Path]++
		mock.lastBody[r.URL.Path] = string(body)
		queue := mock.queues[r.URL.Path]
		var resp MockResponse
		switch len(queue) {
		case 0:
			resp = MockResponse{StatusCode: http.StatusNotFound, Body: "no response configured"}
		case 1:
			resp = queue[0]
		default:
			resp = queue[0]
			mock.queues[r.URL.Path] = queue[1:]
		}
		mock.mu.Unlock()

		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// PricingURL returns the getPricing endpoint of the mock.
func (m *MockCatalog) PricingURL() string {
	return m.server.URL + PricingPath
}

// InventoryURL returns the getInventoryLevels endpoint of the mock.
func (m *MockCatalog) InventoryURL() string {
	return m.server.URL + InventoryPath
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears queued responses and tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues = make(map[string][]MockResponse)
	m.requestCount = make(map[string]int)
	m.lastBody = make(map[string]string)
}

// Queue appends responses for path.
func (m *MockCatalog) Queue(path string, resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[path] = append(m.queues[path], resps...)
}

// SetPricing makes every getPricing call succeed with rows.
func (m *MockCatalog) SetPricing(rows ...PriceRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[PricingPath] = []MockResponse{NewPricingResponse(rows...)}
}

// SetInventory makes every getInventoryLevels call succeed with rows.
func (m *MockCatalog) SetInventory(rows ...StockRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[InventoryPath] = []MockResponse{NewInventoryResponse(rows...)}
}

// RequestCount returns the number of requests made to path.
func (m *MockCatalog) RequestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount[path]
}

// LastBody returns the last request body received on path.
func (m *MockCatalog) LastBody(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBody[path]
}

// NewPricingResponse builds a successful getPricing envelope.
func NewPricingResponse(rows ...PriceRow) MockResponse {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString("<listResponse>")
		writeElem(&b, "style", r.Style)
		writeElem(&b, "color", r.Color)
		writeElem(&b, "size", r.Size)
		writeElem(&b, "piecePrice", r.PiecePrice)
		writeElem(&b, "dozenPrice", r.DozenPrice)
		writeElem(&b, "casePrice", r.CasePrice)
		writeElem(&b, "salePrice", r.SalePrice)
		writeElem(&b, "myPrice", r.MyPrice)
		writeElem(&b, "saleStartDate", r.SaleStartDate)
		writeElem(&b, "saleEndDate", r.SaleEndDate)
		writeElem(&b, "caseSize", r.CaseSize)
		b.WriteString("</listResponse>")
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body: envelope(`<ns2:getPricingResponse xmlns:ns2="http://impl.webservice.integration.sanmar.com/"><return>` +
			`<errorOccurred>false</errorOccurred><message>Success</message>` + b.String() +
			`</return></ns2:getPricingResponse>`),
	}
}

// NewPricingErrorResponse builds a getPricing envelope with errorOccurred set.
func NewPricingErrorResponse(message string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body: envelope(`<ns2:getPricingResponse xmlns:ns2="http://impl.webservice.integration.sanmar.com/"><return>` +
			`<errorOccurred>true</errorOccurred><message>` + message + `</message>` +
			`</return></ns2:getPricingResponse>`),
	}
}

// NewInventoryResponse builds a successful getInventoryLevels envelope.
func NewInventoryResponse(rows ...StockRow) MockResponse {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString("<Inventory><ProductVariationID>")
		writeElem(&b, "Color", r.Color)
		writeElem(&b, "Size", r.Size)
		b.WriteString("</ProductVariationID><LocationInventoryArray>")
		for id, qty := range r.Warehouses {
			fmt.Fprintf(&b, "<LocationInventory><LocationID>%s</LocationID><QuantityAvailable>%d</QuantityAvailable></LocationInventory>", id, qty)
		}
		b.WriteString("</LocationInventoryArray></Inventory>")
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       envelope(`<getInventoryLevelsResponse>` + b.String() + `</getInventoryLevelsResponse>`),
	}
}

// NewFaultResponse creates a SOAP 1.1 Fault with HTTP 500.
func NewFaultResponse(message string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       envelope(`<soap:Fault><faultcode>soap:Server</faultcode><faultstring>` + message + `</faultstring></soap:Fault>`),
	}
}

// NewServerErrorResponse creates a bare 503 Service Unavailable response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       "service unavailable",
	}
}

func envelope(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
		body + `</soap:Body></soap:Envelope>`
}

func writeElem(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "<%s>%s</%s>", name, value, name)
}
