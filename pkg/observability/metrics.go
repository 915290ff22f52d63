// Package observability exposes Prometheus metrics for routing decisions and
// relay traffic.
package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	routeDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentstr_route_decisions_total",
			Help: "Total number of capability routing decisions",
		},
		[]string{"can_handle"},
	)

	routeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agentstr_route_duration_seconds",
			Help:    "Capability routing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentstr_events_published_total",
			Help: "Total number of events published to relays",
		},
		[]string{"kind"},
	)

	dmRoundtripDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agentstr_dm_roundtrip_seconds",
			Help:    "Send-and-wait direct message round trip duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	dmTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agentstr_dm_timeouts_total",
			Help: "Total number of send-and-wait calls that timed out",
		},
	)

	listenerEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentstr_listener_events_total",
			Help: "Total number of events delivered to listener callbacks",
		},
		[]string{"kind"},
	)

	initOnce sync.Once
)

// InitMetrics registers all collectors. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			routeDecisionsTotal,
			routeDuration,
			eventsPublishedTotal,
			dmRoundtripDuration,
			dmTimeoutsTotal,
			listenerEventsTotal,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordRouteDecision records one routing decision.
func RecordRouteDecision(canHandle bool, duration time.Duration) {
	routeDecisionsTotal.WithLabelValues(strconv.FormatBool(canHandle)).Inc()
	routeDuration.Observe(duration.Seconds())
}

// RecordEventPublished records a published event by kind.
func RecordEventPublished(kind int) {
	eventsPublishedTotal.WithLabelValues(strconv.Itoa(kind)).Inc()
}

// RecordDMRoundtrip records a completed send-and-wait round trip.
func RecordDMRoundtrip(duration time.Duration) {
	dmRoundtripDuration.Observe(duration.Seconds())
}

// RecordDMTimeout records a send-and-wait timeout.
func RecordDMTimeout() {
	dmTimeoutsTotal.Inc()
}

// RecordListenerEvent records a listener callback delivery by kind.
func RecordListenerEvent(kind int) {
	listenerEventsTotal.WithLabelValues(strconv.Itoa(kind)).Inc()
}
