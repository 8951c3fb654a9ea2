// Package metrics provides Prometheus instrumentation for CineVerse.
//
// The API server registers its metrics here and exposes them at GET /metrics.
// Standard Go runtime and process metrics come for free from
// prometheus/client_golang.
//
// CineVerse-specific metrics:
//   cineverse_http_requests_total          — counter: requests by method/path/status
//   cineverse_http_request_duration_seconds — histogram: latency by method/path
//   cineverse_tmdb_requests_total          — counter: upstream calls by endpoint/outcome
//   cineverse_reco_requests_total          — counter: recommendation serves by source tier
//   cineverse_reco_degraded_total          — counter: partial fan-out degradations
//   cineverse_billing_events_total         — counter: billing lifecycle events
//   cineverse_auth_events_total            — counter: auth events by type/result
//   cineverse_catalog_movies               — gauge: movies in the synced catalog
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPRequests counts HTTP requests by method, templated path, and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cineverse_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "path", "status"})

// HTTPDuration tracks HTTP request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "cineverse_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path"})

// TMDBRequests counts upstream metadata calls by endpoint and outcome.
var TMDBRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cineverse_tmdb_requests_total",
	Help: "Outbound TMDB requests by endpoint and outcome (ok|error).",
}, []string{"endpoint", "outcome"})

// RecoRequests counts recommendation serves by the tier that produced them:
// personalized, cold_start, anonymous, fallback_popular.
var RecoRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cineverse_reco_requests_total",
	Help: "Recommendation responses by source tier.",
}, []string{"tier"})

// RecoDegraded counts partial fan-out degradations: responses that succeeded
// with fewer candidates because one or more sub-requests failed.
var RecoDegraded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "cineverse_reco_degraded_total",
	Help: "Recommendation responses degraded by partial upstream failures.",
})

// BillingEvents counts billing lifecycle events (order_created, verified,
// verify_failed, purchase_created, ...).
var BillingEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cineverse_billing_events_total",
	Help: "Billing lifecycle events.",
}, []string{"event"})

// AuthEvents counts auth events (login, register, otp_send, ...) by result.
var AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cineverse_auth_events_total",
	Help: "Auth events by type.",
}, []string{"event", "result"})

// CatalogMovies is the number of movies in the synced local catalog.
var CatalogMovies = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "cineverse_catalog_movies",
	Help: "Movies currently in the synced catalog collection.",
})

// Handler returns the Prometheus scrape handler for GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware wraps an HTTP handler to record request counts and latency.
// path should be a templated path (e.g. "/api/movies/similar"), not the raw
// URL, to keep label cardinality bounded.
func Middleware(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
