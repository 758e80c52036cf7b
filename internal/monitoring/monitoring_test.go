// internal/monitoring/monitoring_test.go
package monitoring

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherValue(t *testing.T, mm *MetricsManager, name string) float64 {
	t.Helper()
	families, err := mm.Registry().Gather()
	require.NoError(t, err)
	total := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
		return total
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestMetricsManagersAreIndependent(t *testing.T) {
	a := NewMetricsManager(MetricsConfig{})
	b := NewMetricsManager(MetricsConfig{})

	a.RecordPayload("xhr", 3, 1)
	a.RecordInserted(2, 2)

	assert.Equal(t, 3.0, gatherValue(t, a, "activityscrapexter_session_records_parsed_total"))
	assert.Equal(t, 1.0, gatherValue(t, a, "activityscrapexter_session_parse_failures_total"))
	assert.Equal(t, 2.0, gatherValue(t, a, "activityscrapexter_session_pool_size"))
	assert.Equal(t, 0.0, gatherValue(t, b, "activityscrapexter_session_records_parsed_total"))
}

func TestScrollAndExtractionMetrics(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{Namespace: "test"})

	mm.RecordScrollStart()
	assert.Equal(t, 1.0, gatherValue(t, mm, "test_session_scroll_active"))
	mm.RecordScrollFinished("reached end", 7)
	mm.RecordExtraction("network", 12, 10*time.Millisecond)
	mm.RecordOutputSuccess("json", 12)

	assert.Equal(t, 0.0, gatherValue(t, mm, "test_session_scroll_active"))
	assert.Equal(t, 7.0, gatherValue(t, mm, "test_session_scroll_ticks_total"))
	assert.Equal(t, 1.0, gatherValue(t, mm, "test_session_scroll_sessions_total"))
	assert.Equal(t, 12.0, gatherValue(t, mm, "test_session_records_in_range"))
	assert.Equal(t, 12.0, gatherValue(t, mm, "test_output_records_written_total"))
}

func TestMetricsHandler(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})
	mm.RecordPayload("", 1, 0)

	rec := httptest.NewRecorder()
	mm.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(string(body), `activityscrapexter_session_payloads_received_total{source="unknown"} 1`))
}

func TestHealthAggregation(t *testing.T) {
	hm := NewHealthManager("test")
	hm.RegisterCheck(HealthCheck{Name: "ok", Check: func(context.Context) HealthCheckResult {
		return HealthCheckResult{Status: HealthStatusHealthy}
	}})
	hm.RegisterCheck(HealthCheck{Name: "soft", Check: func(context.Context) HealthCheckResult {
		return HealthCheckResult{Status: HealthStatusUnhealthy}
	}})

	health := hm.GetHealth(context.Background())
	assert.Equal(t, HealthStatusDegraded, health.Status)
	require.Len(t, health.Checks, 2)
	assert.Equal(t, "ok", health.Checks[0].Name)

	hm.RegisterCheck(HealthCheck{Name: "browser", Critical: true, Check: func(context.Context) HealthCheckResult {
		return HealthCheckResult{Status: HealthStatusUnhealthy, Message: "gone"}
	}})
	assert.Equal(t, HealthStatusUnhealthy, hm.GetHealth(context.Background()).Status)
}

func TestHealthHandler(t *testing.T) {
	hm := NewHealthManager("1.0.0")
	hm.RegisterCheck(GoroutineHealthCheck(1 << 20))

	rec := httptest.NewRecorder()
	hm.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var health SystemHealth
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, HealthStatusHealthy, health.Status)
	assert.Equal(t, "1.0.0", health.Version)
	require.Len(t, health.Checks, 1)
	assert.Equal(t, "goroutines", health.Checks[0].Name)
}
