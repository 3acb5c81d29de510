package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", prometheusHandler())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestBusinessCounters(t *testing.T) {
	MustRegisterBusiness()
	MustRegisterBusiness()

	IncOrder("NEW", " created ")
	IncWebhookEvent("", "ignored")
	IncLifecycleOp("extend", "ok")
	ObserveBusinessProcess("order", "initiate", time.Now().Add(-5*time.Millisecond))

	body := scrape(t)
	require.Contains(t, body, `orders_total{action="new",result="created"}`)
	require.Contains(t, body, `webhook_events_total{event="unknown",outcome="ignored"}`)
	require.Contains(t, body, `lifecycle_ops_total{op="extend",result="ok"}`)
	require.Contains(t, body, `bp_dur_bucket{subtype="initiate",type="order"`)
}

func TestPrometheusMiddlewareOnEngine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	p := NewPrometheus(NewPrometheusOptions{})
	p.Use(r)
	r.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, `http_requests_total{code="200",method="GET",route="/items/:id"} 1`)
	require.Contains(t, body, `http_response_size_bytes_count{code="200",method="GET",route="/items/:id"} 1`)
	require.NotContains(t, body, `route="/metrics"`)
}

func TestNewMetricTypes(t *testing.T) {
	h := NewMetric(&Metric{Name: "t_hist", Type: HistogramVec, Args: []string{"a"}}, "test")
	require.IsType(t, &prometheus.HistogramVec{}, h)
	require.IsType(t, &prometheus.CounterVec{}, NewMetric(&Metric{Name: "t_cnt", Type: CounterVec}, "test"))
	require.Nil(t, NewMetric(&Metric{Name: "t_bad", Type: "gauge"}, "test"))

	custom := NewMetric(&Metric{Name: "t_sized", Type: HistogramVec, Args: []string{"a"}, Buckets: []float64{1, 2}}, "test")
	require.IsType(t, &prometheus.HistogramVec{}, custom)
}
