package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LatencyBuckets are millisecond buckets sized for calls that wait on the
// payment gateway or the Telegram API.
var LatencyBuckets = []float64{
	5, 10, 25, 50, 100, 250, 500,
	750, 1000, 1500, 2000, 3000, 5000,
	7500, 10000, 15000, 30000,
}

type MetricType string

const (
	CounterVec   MetricType = "counter_vec"
	HistogramVec MetricType = "histogram_vec"
)

// Metric describes one collector. Buckets applies to histograms only and
// defaults to LatencyBuckets.
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            MetricType
	Args            []string
	Buckets         []float64
}

// NewMetric builds the collector described by m. Unknown types yield nil.
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Type {
	case CounterVec:
		return prometheus.NewCounterVec(
			prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	case HistogramVec:
		buckets := m.Buckets
		if len(buckets) == 0 {
			buckets = LatencyBuckets
		}
		return prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description, Buckets: buckets},
			m.Args,
		)
	}
	return nil
}

var MetricsBusinessProcess = &Metric{
	ID:          "bpDur",
	Name:        "bp_dur",
	Description: "Business process latency in milliseconds, by type and subtype.",
	Type:        HistogramVec,
	Args:        []string{"type", "subtype"},
}

var MetricsOrders = &Metric{
	ID:          "orders",
	Name:        "orders_total",
	Description: "Order initiations by action and result (created/reused/rejected/error).",
	Type:        CounterVec,
	Args:        []string{"action", "result"},
}

var MetricsWebhookEvents = &Metric{
	ID:          "webhookEvents",
	Name:        "webhook_events_total",
	Description: "Gateway webhook events by event type and outcome.",
	Type:        CounterVec,
	Args:        []string{"event", "outcome"},
}

var MetricsActivations = &Metric{
	ID:          "activations",
	Name:        "activations_total",
	Description: "Successful subscription activations by action.",
	Type:        CounterVec,
	Args:        []string{"action"},
}

var MetricsActivationFailures = &Metric{
	ID:          "activationFailures",
	Name:        "activation_failures_total",
	Description: "Captured payments whose activation failed and need manual reconciliation.",
	Type:        CounterVec,
	Args:        []string{"action"},
}

var MetricsLifecycleOps = &Metric{
	ID:          "lifecycleOps",
	Name:        "lifecycle_ops_total",
	Description: "Administrative lifecycle operations by op and result.",
	Type:        CounterVec,
	Args:        []string{"op", "result"},
}
