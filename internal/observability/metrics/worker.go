package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	sweepTotal     *prometheus.CounterVec
	sweepDuration  *prometheus.HistogramVec
	sweepInFlight  prometheus.Gauge
	sweepRemoved   *prometheus.CounterVec
	lastSweepEpoch *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	sweepTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "cache_sweep_total",
			Help:      "Total expired-entry sweeps by status.",
		},
		[]string{"service", "status"},
	)
	sweepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "cache_sweep_duration_seconds",
			Help:      "Expired-entry sweep duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	sweepInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "cache_sweep_in_flight",
			Help:      "Number of running expired-entry sweeps.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	sweepRemoved := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "cache_entries_removed_total",
			Help:      "Expired or corrupt cache entries removed by sweeps.",
		},
		[]string{"service"},
	)
	lastSweepEpoch := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "last_successful_sweep_timestamp_seconds",
			Help:      "Unix time of the last successful sweep.",
		},
		[]string{"service"},
	)

	registry.MustRegister(sweepTotal, sweepDuration, sweepInFlight, sweepRemoved, lastSweepEpoch)

	return &WorkerMetrics{
		registry:       registry,
		sweepTotal:     sweepTotal,
		sweepDuration:  sweepDuration,
		sweepInFlight:  sweepInFlight,
		sweepRemoved:   sweepRemoved,
		lastSweepEpoch: lastSweepEpoch,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartSweep() {
	m.sweepInFlight.Inc()
}

func (m *WorkerMetrics) FinishSweep(service string, finishedAt time.Time, duration time.Duration, removed int, err error) {
	m.sweepInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.sweepTotal.WithLabelValues(service, status).Inc()
	m.sweepDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if err != nil {
		return
	}
	if removed > 0 {
		m.sweepRemoved.WithLabelValues(service).Add(float64(removed))
	}
	m.lastSweepEpoch.WithLabelValues(service).Set(float64(finishedAt.Unix()))
}
