package metrics

import (
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer creates the side listener serving /metrics (Prometheus) together
// with the liveness and readiness endpoints of health.
func NewServer(addr string, health healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.LiveEndpoint)
	mux.HandleFunc("/readyz", health.ReadyEndpoint)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
