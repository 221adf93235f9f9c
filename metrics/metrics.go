// Package metrics exposes Prometheus collectors for the session lifecycle.
//
// All recording methods accept a nil *Collector, so callers that were not
// given one can record unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "vaultsession"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector is a prometheus.Collector for one session client.
type Collector struct {
	logins          *prometheus.CounterVec
	renewals        *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	gateWaits       prometheus.Counter
	sessionExpired  prometheus.Counter
	tokenTTL        prometheus.Gauge
	renewalRunning  prometheus.Gauge
}

// NewCollector returns a new Collector. Register it with a registry to
// expose it.
func NewCollector() *Collector {
	return &Collector{
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "logins_total",
				Help:      "Login attempts against the auth backend.",
			}, []string{"backend", "outcome"},
		),
		renewals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "renewals_total",
				Help:      "Token renewal attempts by the background loop.",
			}, []string{"backend", "outcome"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Authenticated Vault requests by method and outcome.",
			}, []string{"method", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "request_duration_seconds",
				Help:      "Latency of authenticated Vault requests, including any re-login.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			}, []string{"method"},
		),
		gateWaits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reauth_gate_entries_total",
				Help:      "Callers that found the token expired and entered the re-authentication gate.",
			},
		),
		sessionExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "session_expired_total",
				Help:      "Requests refused because the token expired and the policy does not re-login.",
			},
		),
		tokenTTL: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "token_ttl_seconds",
				Help:      "Validity window of the token published by the last login or renewal.",
			},
		),
		renewalRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "renewal_loop_running",
				Help:      "1 while the background renewal loop is running.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.logins.Describe(ch)
	c.renewals.Describe(ch)
	c.requests.Describe(ch)
	c.requestDuration.Describe(ch)
	c.gateWaits.Describe(ch)
	c.sessionExpired.Describe(ch)
	c.tokenTTL.Describe(ch)
	c.renewalRunning.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.logins.Collect(ch)
	c.renewals.Collect(ch)
	c.requests.Collect(ch)
	c.requestDuration.Collect(ch)
	c.gateWaits.Collect(ch)
	c.sessionExpired.Collect(ch)
	c.tokenTTL.Collect(ch)
	c.renewalRunning.Collect(ch)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// Login records a login attempt and, on success, the new token's window.
func (c *Collector) Login(backend string, ttl time.Duration, err error) {
	if c == nil {
		return
	}
	c.logins.WithLabelValues(backend, outcome(err)).Inc()
	if err == nil {
		c.tokenTTL.Set(ttl.Seconds())
	}
}

// Renewal records a renewal attempt and, on success, the new window.
func (c *Collector) Renewal(backend string, ttl time.Duration, err error) {
	if c == nil {
		return
	}
	c.renewals.WithLabelValues(backend, outcome(err)).Inc()
	if err == nil {
		c.tokenTTL.Set(ttl.Seconds())
	}
}

// Request records one authenticated request.
func (c *Collector) Request(method string, took time.Duration, err error) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, outcome(err)).Inc()
	c.requestDuration.WithLabelValues(method).Observe(took.Seconds())
}

// GateEntered counts a caller taking the slow path.
func (c *Collector) GateEntered() {
	if c == nil {
		return
	}
	c.gateWaits.Inc()
}

// SessionExpired counts a request refused for an expired session.
func (c *Collector) SessionExpired() {
	if c == nil {
		return
	}
	c.sessionExpired.Inc()
}

// RenewalLoop marks the background loop as running or stopped.
func (c *Collector) RenewalLoop(running bool) {
	if c == nil {
		return
	}
	if running {
		c.renewalRunning.Set(1)
		return
	}
	c.renewalRunning.Set(0)
}
