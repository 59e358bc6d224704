package datalog

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the Prometheus-native equivalent of the original firmware's
// promMetrics struct: monotonic counters for disk IO and cache hits, plus
// the integrator's collection counters, all optional — a nil Registerer
// leaves every metric unregistered and the counters simply accumulate
// in memory unread.
type Metrics struct {
	ioTotal       prometheus.Counter
	cacheHitTotal prometheus.Counter

	CollectErrorsTotal prometheus.Counter
	CollectTimeMsTotal prometheus.Counter
	LastRunAvgMs       prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ioTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datalog_io_total",
			Help: "Total number of disk I/O operations performed by the circular file store.",
		}),
		cacheHitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datalog_cache_hit_total",
			Help: "Total number of reads served from the tail-cache or read-cache instead of disk.",
		}),
		CollectErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "integrator_collect_errors_total",
			Help: "Total number of device accumulation errors observed by the integrator.",
		}),
		CollectTimeMsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "integrator_collect_time_ms_total",
			Help: "Cumulative milliseconds spent accumulating device samples.",
		}),
		LastRunAvgMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "integrator_last_run_avg_ms",
			Help: "Average per-device accumulation time, in milliseconds, for the most recent integrator run.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ioTotal, m.cacheHitTotal, m.CollectErrorsTotal, m.CollectTimeMsTotal, m.LastRunAvgMs)
	}
	return m
}
