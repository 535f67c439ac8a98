package observability

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traccia",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Count of handled HTTP requests by method and status code.",
	}, []string{"method", "status"})
	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "traccia",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	mutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traccia",
		Subsystem: "mutations",
		Name:      "total",
		Help:      "Count of completed mutation-layer operations by type.",
	}, []string{"operation"})
	aggregationReadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traccia",
		Subsystem: "aggregation",
		Name:      "reads_total",
		Help:      "Count of aggregation view computations by view.",
	}, []string{"view"})
	lastLogGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "traccia",
		Subsystem: "logs",
		Name:      "last_recorded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent log occurrence recorded.",
	})
	cacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traccia",
		Subsystem: "view_cache",
		Name:      "hits_total",
		Help:      "View cache hits by view kind.",
	}, []string{"view"})
	cacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traccia",
		Subsystem: "view_cache",
		Name:      "misses_total",
		Help:      "View cache misses by view kind.",
	}, []string{"view"})
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		mutationsTotal,
		aggregationReadsTotal,
		lastLogGauge,
		cacheHitsTotal,
		cacheMissesTotal,
	)
}

// RecordHTTPRequest counts one handled request and observes its latency.
func RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RegisterRateLimitClients exposes the rate limiter's tracked-client count
// as a gauge. Re-registering under the same name is a no-op so tests can
// build multiple servers.
func RegisterRateLimitClients(count func() int) {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "traccia",
		Subsystem: "ratelimit",
		Name:      "active_clients",
		Help:      "Number of client addresses currently tracked by the rate limiter.",
	}, func() float64 { return float64(count()) })
	if err := prometheus.Register(gauge); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			panic(err)
		}
	}
}

// RecordMutation counts one completed mutation operation.
func RecordMutation(operation string) {
	mutationsTotal.WithLabelValues(operation).Inc()
}

// RecordAggregationRead counts one aggregation view computation.
func RecordAggregationRead(view string) {
	aggregationReadsTotal.WithLabelValues(view).Inc()
}

// RecordLogOccurrence updates the most-recent-log watermark.
func RecordLogOccurrence(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastLogGauge.Set(float64(ts.Unix()))
}

// RecordCacheHit counts a view cache hit.
func RecordCacheHit(view string) {
	cacheHitsTotal.WithLabelValues(view).Inc()
}

// RecordCacheMiss counts a view cache miss.
func RecordCacheMiss(view string) {
	cacheMissesTotal.WithLabelValues(view).Inc()
}
