package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imageai",
			Name:      "conversions_total",
			Help:      "Conversions handled by the backend, by kind and result",
		},
		[]string{"kind", "result"},
	)

	conversionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "imageai",
			Name:      "conversion_duration_seconds",
			Help:      "End-to-end backend conversion duration by kind",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	visionReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imageai",
			Name:      "vision_requests_total",
			Help:      "Vision provider requests by feature and result",
		},
		[]string{"feature", "result"},
	)

	visionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "imageai",
			Name:      "vision_request_duration_seconds",
			Help:      "Duration of vision provider requests by feature",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"feature"},
	)

	relayReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imageai",
			Name:      "relay_requests_total",
			Help:      "Relay requests by kind and outcome (ok, unauthorized, invalid, timeout, connection, upstream)",
		},
		[]string{"kind", "outcome"},
	)

	relayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "imageai",
			Name:      "relay_backend_duration_seconds",
			Help:      "Duration of relay to backend calls by kind",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	cacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imageai",
			Name:      "cache_events_total",
			Help:      "Envelope cache events (hit, miss, store_error)",
		},
		[]string{"event"},
	)

	cooldownEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imageai",
			Name:      "quota_cooldown_events_total",
			Help:      "Quota cooldown events by provider and action",
		},
		[]string{"provider", "action"},
	)
)

var once sync.Once

// Init registers collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(conversions, conversionLatency, visionReqs, visionLatency,
			relayReqs, relayLatency, cacheEvents, cooldownEvents)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveConversion(kind, result string, dur time.Duration) {
	conversions.WithLabelValues(kind, result).Inc()
	conversionLatency.WithLabelValues(kind).Observe(dur.Seconds())
}

func ObserveVision(feature, result string, dur time.Duration) {
	visionReqs.WithLabelValues(feature, result).Inc()
	visionLatency.WithLabelValues(feature).Observe(dur.Seconds())
}

func ObserveRelay(kind, outcome string, dur time.Duration) {
	relayReqs.WithLabelValues(kind, outcome).Inc()
	if dur > 0 {
		relayLatency.WithLabelValues(kind).Observe(dur.Seconds())
	}
}

func IncCache(event string) { cacheEvents.WithLabelValues(event).Inc() }

func CooldownOpened(provider string) { cooldownEvents.WithLabelValues(provider, "opened").Inc() }
func CooldownClosed(provider string) { cooldownEvents.WithLabelValues(provider, "closed").Inc() }
func CooldownRejected(provider string) {
	cooldownEvents.WithLabelValues(provider, "rejected").Inc()
}
