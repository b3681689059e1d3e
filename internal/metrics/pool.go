package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatter is the part of *pgxpool.Pool the pool gauges read.
type PoolStatter interface {
	Stat() *pgxpool.Stat
}

// RegisterPoolMetrics exposes pgx connection pool statistics as Prometheus gauges.
func RegisterPoolMetrics(reg prometheus.Registerer, pool PoolStatter) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pgxpool_acquired_conns",
			Help: "Number of currently acquired connections in the pool",
		}, func() float64 {
			return float64(pool.Stat().AcquiredConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pgxpool_max_conns",
			Help: "Maximum number of connections in the pool",
		}, func() float64 {
			return float64(pool.Stat().MaxConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pgxpool_total_conns",
			Help: "Total number of connections in the pool",
		}, func() float64 {
			return float64(pool.Stat().TotalConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pgxpool_idle_conns",
			Help: "Number of idle connections in the pool",
		}, func() float64 {
			return float64(pool.Stat().IdleConns())
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "pgxpool_acquire_total",
			Help: "Cumulative count of successful connection acquires from the pool",
		}, func() float64 {
			return float64(pool.Stat().AcquireCount())
		}),
	)
}
