package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsar_requests_total",
		Help: "Total HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulsar_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulsar_active_sessions",
		Help: "Exploration sessions currently held in memory",
	})
	SessionsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulsar_sessions_started_total",
		Help: "Total exploration sessions created",
	})
	ExcludedOffersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulsar_excluded_offers_total",
		Help: "Offers dropped from aggregation for lacking a usable value",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulsar_cache_hits_total",
		Help: "Total bundle cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulsar_cache_misses_total",
		Help: "Total bundle cache misses",
	})
	BuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsar_build_duration_ms",
		Help:    "Tree build plus aggregation duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(SessionsStartedTotal)
	prometheus.MustRegister(ExcludedOffersTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(BuildDurationMs)
}

// Handler exposes the registered collectors for scraping; mounted on
// /metrics by the server.
func Handler() http.Handler { return promhttp.Handler() }
