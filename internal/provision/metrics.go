package provision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_commands_total",
			Help: "Total number of provisioning commands run, by command and result",
		},
		[]string{"command", "result"},
	)

	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provision_command_duration_seconds",
			Help:    "Provisioning command duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		},
		[]string{"command"},
	)
)

func observe(name string, out Outcome) {
	result := "ok"
	if !out.OK {
		result = "failed"
	}
	commandsTotal.WithLabelValues(name, result).Inc()
	commandDuration.WithLabelValues(name).Observe(out.Duration.Seconds())
}
