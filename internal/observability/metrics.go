// Package observability holds the prometheus collectors of the client.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors on a private registry, so several clients
// in one process (tests) do not collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AuthFailuresTotal   prometheus.Counter
	PollsTotal          *prometheus.CounterVec
	UnreadNotifications prometheus.Gauge
	ReconcileFetches    *prometheus.CounterVec
}

// New registers a fresh set of collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{Namespace: "rideshare", Subsystem: "client", Name: "http_requests_total", Help: "Total backend requests issued"},
			[]string{"method", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rideshare",
				Subsystem: "client",
				Name:      "http_request_duration_seconds",
				Help:      "Backend request latency distribution",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
		AuthFailuresTotal: f.NewCounter(prometheus.CounterOpts{Namespace: "rideshare", Subsystem: "client", Name: "auth_failures_total", Help: "Responses that cleared the session"}),
		PollsTotal: f.NewCounterVec(
			prometheus.CounterOpts{Namespace: "rideshare", Subsystem: "notify", Name: "polls_total", Help: "Unread count polls by result"},
			[]string{"result"},
		),
		UnreadNotifications: f.NewGauge(prometheus.GaugeOpts{Namespace: "rideshare", Subsystem: "notify", Name: "unread", Help: "Last observed unread notification count"}),
		ReconcileFetches: f.NewCounterVec(
			prometheus.CounterOpts{Namespace: "rideshare", Subsystem: "reconcile", Name: "refetches_total", Help: "View refetches triggered by actions"},
			[]string{"view"},
		),
	}
}

// ObserveRequest records one backend call. status 0 means no response.
func (m *Metrics) ObserveRequest(method string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	class := StatusClass(status)
	m.HTTPRequestsTotal.WithLabelValues(method, class).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, class).Observe(dur.Seconds())
}

// Handler serves the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// StatusClass collapses a status code to "2xx".."5xx", or "none".
func StatusClass(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status/100) + "xx"
}
