// Package observability holds the process-wide Prometheus collectors for the
// HTTP layer, the codec, the location store and the query cache.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	codecOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digipin_codec_ops_total",
			Help: "Codec operations by op and outcome.",
		},
		[]string{"op", "outcome"},
	)

	storeOpSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "location_store_op_seconds",
			Help:    "Latency of location store operations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"backend", "op"},
	)

	storeOpErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_store_op_errors_total",
			Help: "Failed location store operations.",
		},
		[]string{"backend", "op"},
	)

	queryCacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_results_total",
			Help: "Query cache lookups by outcome.",
		},
		[]string{"op", "outcome"},
	)
)

// Collectors returns every collector owned by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		codecOps,
		storeOpSeconds,
		storeOpErrors,
		queryCacheResults,
	}
}

// Init registers the collectors on r. Registering twice on the same
// registry is not an error.
func Init(r prometheus.Registerer) error {
	if r == nil {
		return nil
	}
	for _, c := range Collectors() {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveCodecOp counts one codec call. The outcome label is "ok", the
// digipin error kind, or "error".
func ObserveCodecOp(op string, err error) {
	codecOps.WithLabelValues(op, outcome(err)).Inc()
}

func ObserveStoreOp(backend, op string, err error, durationSeconds float64) {
	storeOpSeconds.WithLabelValues(backend, op).Observe(durationSeconds)
	if err != nil {
		storeOpErrors.WithLabelValues(backend, op).Inc()
	}
}

func IncQueryCacheHit(op string) {
	queryCacheResults.WithLabelValues(op, "hit").Inc()
}

func IncQueryCacheMiss(op string) {
	queryCacheResults.WithLabelValues(op, "miss").Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := digipin.ErrorKind(err); k != "" {
		return k
	}
	return "error"
}
