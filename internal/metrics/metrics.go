// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	markersCreated prometheus.Counter
	markersUpdated prometheus.Counter
	uploads        *prometheus.CounterVec
	mailsSent      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dockly",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dockly",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		markersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dockly",
			Name:      "markers_created_total",
			Help:      "Markers created.",
		}),
		markersUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dockly",
			Name:      "markers_updated_total",
			Help:      "Markers updated.",
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dockly",
			Name:      "uploads_total",
			Help:      "Image uploads by result code.",
		}, []string{"result"}),
		mailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dockly",
			Name:      "verification_mails_total",
			Help:      "Verification mails by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.markersCreated, m.markersUpdated, m.uploads, m.mailsSent,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// The recording methods are safe on a nil *Metrics.

func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, status).Inc()
	m.duration.WithLabelValues(route, method).Observe(seconds)
}

func (m *Metrics) MarkerCreated() {
	if m != nil {
		m.markersCreated.Inc()
	}
}

func (m *Metrics) MarkerUpdated() {
	if m != nil {
		m.markersUpdated.Inc()
	}
}

func (m *Metrics) Upload(result string) {
	if m != nil {
		m.uploads.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) VerificationMail(outcome string) {
	if m != nil {
		m.mailsSent.WithLabelValues(outcome).Inc()
	}
}
