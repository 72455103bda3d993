package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/Sternrassler/githulk/pkg/pagination"
	_ "github.com/Sternrassler/githulk/pkg/ratelimit"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}

	if Gatherer != prometheus.DefaultGatherer {
		t.Error("Gatherer should be the default Prometheus gatherer")
	}
}

func TestGatherer_ContainsPackageMetrics(t *testing.T) {
	families, err := Gatherer.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}

	for _, want := range []string{
		"hulk_pages_fetched_total",
		"hulk_pagination_pages_per_sequence",
		"hulk_rate_limit_blocks_total",
		"hulk_rate_limit_throttles_total",
	} {
		if !names[want] {
			t.Errorf("Expected %s to be registered", want)
		}
	}
}

func TestHandler(t *testing.T) {
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "# TYPE hulk_pages_fetched_total counter") {
		t.Error("Expected Prometheus text output with hulk_pages_fetched_total")
	}
}
