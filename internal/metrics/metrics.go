// Package metrics holds the Prometheus collectors for the HTTP surface and
// the stream consumers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "practicalwork"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	sessionsCreated prometheus.Counter
	ordersCreated   *prometheus.CounterVec

	eventsHandled *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	eventRetries  *prometheus.CounterVec
	inFlight      *prometheus.GaugeVec
	resubscribes  *prometheus.CounterVec
}

// New builds a private registry so tests and multiple instances never clash
// on the global one.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, including configured delays.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions issued.",
		}),
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders persisted, by product.",
		}, []string{"product"}),
		eventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consumer_events_total",
			Help:      "Stream events finished, by consumer and outcome.",
		}, []string{"consumer", "outcome"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "consumer_event_duration_seconds",
			Help:      "Time from dispatch to acknowledgment, retries included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"consumer"}),
		eventRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consumer_retries_total",
			Help:      "Handler attempts that were retried.",
		}, []string{"consumer"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consumer_in_flight",
			Help:      "Events currently being handled.",
		}, []string{"consumer"}),
		resubscribes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consumer_resubscribes_total",
			Help:      "Subscription failures followed by a resubscribe.",
		}, []string{"consumer"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.sessionsCreated,
		m.ordersCreated,
		m.eventsHandled,
		m.eventDuration,
		m.eventRetries,
		m.inFlight,
		m.resubscribes,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) SessionCreated() {
	m.sessionsCreated.Inc()
}

func (m *Metrics) OrderCreated(product string) {
	m.ordersCreated.WithLabelValues(product).Inc()
}

func (m *Metrics) EventHandled(consumer, outcome string, d time.Duration) {
	m.eventsHandled.WithLabelValues(consumer, outcome).Inc()
	m.eventDuration.WithLabelValues(consumer).Observe(d.Seconds())
}

func (m *Metrics) EventRetried(consumer string) {
	m.eventRetries.WithLabelValues(consumer).Inc()
}

func (m *Metrics) InFlight(consumer string, delta float64) {
	m.inFlight.WithLabelValues(consumer).Add(delta)
}

func (m *Metrics) Resubscribed(consumer string) {
	m.resubscribes.WithLabelValues(consumer).Inc()
}
