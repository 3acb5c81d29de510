package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMetricPath = "/metrics"

var httpLabels = []string{"code", "method", "route"}

var reqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "http_requests_total",
	Description: "HTTP requests by status code, method and route.",
	Type:        CounterVec,
	Args:        httpLabels,
}

var reqDur = &Metric{
	ID:          "reqDur",
	Name:        "http_request_dur_ms",
	Description: "HTTP request latency in milliseconds.",
	Type:        HistogramVec,
	Args:        httpLabels,
}

var resSz = &Metric{
	ID:          "resSz",
	Name:        "http_response_size_bytes",
	Description: "HTTP response body sizes in bytes.",
	Type:        HistogramVec,
	Args:        httpLabels,
	Buckets:     prometheus.ExponentialBuckets(64, 4, 7),
}

// Logger is satisfied by *zap.SugaredLogger.
type Logger interface {
	Errorf(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
}

// RouteLabelFn maps a request to its "route" label. It should return the
// route template, not the raw path, to keep cardinality bounded.
type RouteLabelFn func(c *gin.Context) string

// Prometheus records HTTP request metrics and serves the scrape endpoint,
// optionally on its own listener.
type Prometheus struct {
	reqCnt *prometheus.CounterVec
	reqDur *prometheus.HistogramVec
	resSz  *prometheus.HistogramVec

	listenAddress string
	server        *http.Server

	MetricsPath string
	RouteLabel  RouteLabelFn

	logger Logger
}

type NewPrometheusOptions struct {
	Subsystem   string
	MetricsPath string
	RouteLabel  RouteLabelFn
	Logger      Logger
}

func NewPrometheus(options NewPrometheusOptions) *Prometheus {
	p := &Prometheus{
		MetricsPath: defaultMetricPath,
		RouteLabel:  options.RouteLabel,
		logger:      options.Logger,
	}
	if options.MetricsPath != "" {
		p.MetricsPath = options.MetricsPath
	}
	if p.RouteLabel == nil {
		p.RouteLabel = func(c *gin.Context) string { return c.FullPath() }
	}
	p.reqCnt = p.register(reqCnt, options.Subsystem).(*prometheus.CounterVec)
	p.reqDur = p.register(reqDur, options.Subsystem).(*prometheus.HistogramVec)
	p.resSz = p.register(resSz, options.Subsystem).(*prometheus.HistogramVec)
	return p
}

// register adds the collector for m, reusing one registered earlier under
// the same name.
func (p *Prometheus) register(m *Metric, subsystem string) prometheus.Collector {
	c := NewMetric(m, subsystem)
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			c = are.ExistingCollector
		} else if p.logger != nil {
			p.logger.Errorf("%s could not be registered in Prometheus, err=%v", m.Name, err)
		}
	}
	m.MetricCollector = c
	return c
}

// SetListenAddress exposes metrics on a separate address instead of the app engine.
func (p *Prometheus) SetListenAddress(address string) {
	p.listenAddress = address
}

// Use adds the middleware to e and mounts the metrics endpoint, either on e
// or on the dedicated listen address.
func (p *Prometheus) Use(e *gin.Engine) {
	e.Use(p.HandlerFunc())
	if p.listenAddress == "" {
		e.GET(p.MetricsPath, prometheusHandler())
		return
	}
	r := gin.New()
	r.GET(p.MetricsPath, prometheusHandler())
	p.server = &http.Server{Addr: p.listenAddress, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && p.logger != nil {
			p.logger.Errorf("metrics server error: %v", err)
		}
	}()
}

// Shutdown stops the dedicated metrics server, if any.
func (p *Prometheus) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	return p.server.Shutdown(ctx)
}

func (p *Prometheus) HandlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == p.MetricsPath {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		labels := []string{strconv.Itoa(c.Writer.Status()), c.Request.Method, p.RouteLabel(c)}
		p.reqCnt.WithLabelValues(labels...).Inc()
		p.reqDur.WithLabelValues(labels...).Observe(MillisecondsSince(start))
		if n := c.Writer.Size(); n >= 0 {
			p.resSz.WithLabelValues(labels...).Observe(float64(n))
		}
	}
}

func prometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// MillisecondsSince returns the elapsed time since start in milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
