package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	counter := promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricing_metrics_handler_test_total",
		Help: "Counter registered by the handler test",
	})
	counter.Add(3)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "pricing_metrics_handler_test_total 3") {
		t.Errorf("Expected test counter in output, got:\n%s", body)
	}
}
