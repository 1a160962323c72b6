package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	httpErrors         *prometheus.CounterVec
	ticketsCreated     prometheus.Counter
	messagesPosted     *prometheus.CounterVec
	enrichmentOutcomes *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route"}),
		httpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_errors_total",
			Help: "Requests that ended in a domain error",
		}, []string{"method", "route", "code"}),
		ticketsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_tickets_created_total",
			Help: "Total tickets created",
		}),
		messagesPosted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_messages_posted_total",
			Help: "Total ticket messages posted",
		}, []string{"visibility"}),
		enrichmentOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_ai_enrichment_total",
			Help: "AI enrichment attempts by outcome",
		}, []string{"outcome"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_cache_lookups_total",
			Help: "Dashboard cache lookups by result",
		}, []string{"result"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest counts a finished request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError counts a request that failed with a domain error code.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, route, code).Inc()
}

// TicketCreated counts a new ticket.
func (m *Metrics) TicketCreated() {
	if m == nil {
		return
	}
	m.ticketsCreated.Inc()
}

// MessagePosted counts a new message by visibility.
func (m *Metrics) MessagePosted(internal bool) {
	if m == nil {
		return
	}
	visibility := "public"
	if internal {
		visibility = "internal"
	}
	m.messagesPosted.WithLabelValues(visibility).Inc()
}

// EnrichmentOutcome counts an AI enrichment attempt: "ok" or "failed".
func (m *Metrics) EnrichmentOutcome(outcome string) {
	if m == nil {
		return
	}
	m.enrichmentOutcomes.WithLabelValues(outcome).Inc()
}

// CacheLookup counts a dashboard cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
