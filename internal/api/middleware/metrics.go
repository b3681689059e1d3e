package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vpanel",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Panel API requests by route and status class.",
	}, []string{"method", "route", "code"})

	// Mutations wait on provisioning commands, so the buckets reach past a
	// minute.
	apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vpanel",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Panel API request latency.",
		Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"method", "route"})

	apiInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vpanel",
		Subsystem: "api",
		Name:      "requests_in_flight",
		Help:      "Panel API requests currently being served.",
	})
)

// Metrics records request counts, latency and concurrency per chi route.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiInFlight.Inc()
		defer apiInFlight.Dec()

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := routeLabel(r)
		apiRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.status)).Inc()
		apiLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeLabel keeps ids out of the label set. Unmatched paths collapse into
// one series.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusWriter remembers the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
