package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	ordersTotal             = NewMetric(MetricsOrders, "").(*prometheus.CounterVec)
	webhookEventsTotal      = NewMetric(MetricsWebhookEvents, "").(*prometheus.CounterVec)
	activationsTotal        = NewMetric(MetricsActivations, "").(*prometheus.CounterVec)
	activationFailuresTotal = NewMetric(MetricsActivationFailures, "").(*prometheus.CounterVec)
	lifecycleOpsTotal       = NewMetric(MetricsLifecycleOps, "").(*prometheus.CounterVec)
	bpDur                   = NewMetric(MetricsBusinessProcess, "").(*prometheus.HistogramVec)
)

// MustRegisterBusiness registers the business collectors once.
func MustRegisterBusiness() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ordersTotal, webhookEventsTotal, activationsTotal, activationFailuresTotal, lifecycleOpsTotal, bpDur)
	})
}

func IncOrder(action, result string) {
	ordersTotal.WithLabelValues(norm(action), norm(result)).Inc()
}

func IncWebhookEvent(event, outcome string) {
	webhookEventsTotal.WithLabelValues(norm(event), norm(outcome)).Inc()
}

func IncActivation(action string) {
	activationsTotal.WithLabelValues(norm(action)).Inc()
}

func IncActivationFailure(action string) {
	activationFailuresTotal.WithLabelValues(norm(action)).Inc()
}

func IncLifecycleOp(op, result string) {
	lifecycleOpsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}

// ObserveBusinessProcess records the latency since start in milliseconds.
func ObserveBusinessProcess(typ, subtype string, start time.Time) {
	bpDur.WithLabelValues(norm(typ), norm(subtype)).Observe(MillisecondsSince(start))
}

func norm(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "unknown"
	}
	return s
}
