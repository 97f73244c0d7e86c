package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// durationBuckets covers the full operation range: search answers in
// milliseconds, deployments poll for up to three minutes.
var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180}

// Metrics holds the Prometheus collectors for the gateway.
type Metrics struct {
	operations       *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	cacheRequests    *prometheus.CounterVec
	billingCharges   *prometheus.CounterVec
	deploysInFlight  prometheus.Gauge
	validatorChecks  *prometheus.CounterVec
}

// New creates the gateway collectors and registers them with the default
// registry. Registering a collector that already exists adopts the existing
// one instead of failing, so tests can construct Metrics repeatedly.
func New() *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openconductor",
			Subsystem: "gateway",
			Name:      "operations_total",
			Help:      "Count of finished operations by event and outcome",
		}, []string{"event", "outcome"}),

		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "openconductor",
			Subsystem: "gateway",
			Name:      "operation_duration_seconds",
			Help:      "Latency distribution of operations",
			Buckets:   durationBuckets,
		}, []string{"event"}),

		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openconductor",
			Subsystem: "gateway",
			Name:      "cache_requests_total",
			Help:      "Count of cache lookups by result",
		}, []string{"result"}),

		billingCharges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openconductor",
			Subsystem: "gateway",
			Name:      "billing_charges_total",
			Help:      "Count of ledger charge attempts by event and result",
		}, []string{"event", "result"}),

		deploysInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "openconductor",
			Subsystem: "gateway",
			Name:      "deployments_inflight",
			Help:      "Number of deployment attempts currently running",
		}),

		validatorChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openconductor",
			Subsystem: "gateway",
			Name:      "validator_checks_total",
			Help:      "Count of validation pipeline checks by check and outcome",
		}, []string{"check", "outcome"}),
	}

	m.operations = registerCounterVec(m.operations)
	m.operationLatency = registerHistogramVec(m.operationLatency)
	m.cacheRequests = registerCounterVec(m.cacheRequests)
	m.billingCharges = registerCounterVec(m.billingCharges)
	m.deploysInFlight = registerGauge(m.deploysInFlight)
	m.validatorChecks = registerCounterVec(m.validatorChecks)
	return m
}

// RecordOperation counts one finished operation and observes its latency.
// Outcome is "success" or the error kind that ended the request.
func (m *Metrics) RecordOperation(event, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.With(prometheus.Labels{"event": event, "outcome": outcome}).Inc()
	m.operationLatency.With(prometheus.Labels{"event": event}).Observe(duration.Seconds())
}

// RecordCacheRequest counts one cache lookup. Result is "hit" or "miss".
func (m *Metrics) RecordCacheRequest(result string) {
	if m == nil {
		return
	}
	m.cacheRequests.With(prometheus.Labels{"result": result}).Inc()
}

// RecordBillingCharge counts one ledger charge attempt. Result is "charged",
// "duplicate", or "error".
func (m *Metrics) RecordBillingCharge(event, result string) {
	if m == nil {
		return
	}
	m.billingCharges.With(prometheus.Labels{"event": event, "result": result}).Inc()
}

// DeployStarted marks a deployment attempt as running.
func (m *Metrics) DeployStarted() {
	if m == nil {
		return
	}
	m.deploysInFlight.Inc()
}

// DeployFinished marks a deployment attempt as done, whatever the outcome.
func (m *Metrics) DeployFinished() {
	if m == nil {
		return
	}
	m.deploysInFlight.Dec()
}

// RecordValidationChecks counts every pipeline check of one validation run.
// A nil check never ran because an earlier one failed.
func (m *Metrics) RecordValidationChecks(checks api.ValidationChecks) {
	if m == nil {
		return
	}
	m.recordCheck("repo_reachable", checks.RepoReachable)
	m.recordCheck("installable", checks.Installable)
	m.recordCheck("protocol_compliant", checks.ProtocolCompliant)
	m.recordCheck("tools_enumerated", checks.ToolsEnumerated)
}

func (m *Metrics) recordCheck(check string, result *bool) {
	outcome := "skipped"
	switch {
	case result == nil:
	case *result:
		outcome = "pass"
	default:
		outcome = "fail"
	}
	m.validatorChecks.With(prometheus.Labels{"check": check, "outcome": outcome}).Inc()
}

func registerCounterVec(c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return c
}

func registerHistogramVec(h *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec)
		}
	}
	return h
}

func registerGauge(g prometheus.Gauge) prometheus.Gauge {
	if err := prometheus.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Gauge)
		}
	}
	return g
}
