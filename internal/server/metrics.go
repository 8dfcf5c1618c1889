package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/roach88/busscope/internal/servicecontrol"
)

// Metrics holds the collectors exposed on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	reconstructions        *prometheus.CounterVec
	reconstructionDuration prometheus.Histogram
	orphanRoots            prometheus.Counter
	upstreamRequests       *prometheus.CounterVec
	upstreamDuration       *prometheus.HistogramVec
	upstreamHealthy        prometheus.Gauge
	httpRequests           *prometheus.CounterVec
	snapshotsSaved         *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		reconstructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "busscope",
				Subsystem: "sequence",
				Name:      "reconstructions_total",
				Help:      "Conversation model reconstructions by result",
			},
			[]string{"result"},
		),

		reconstructionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "busscope",
				Subsystem: "sequence",
				Name:      "reconstruction_duration_seconds",
				Help:      "Time spent building a conversation model",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),

		orphanRoots: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "busscope",
				Subsystem: "sequence",
				Name:      "orphan_roots_total",
				Help:      "Messages whose parent was absent from the conversation",
			},
		),

		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "busscope",
				Subsystem: "upstream",
				Name:      "requests_total",
				Help:      "Monitoring service requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "busscope",
				Subsystem: "upstream",
				Name:      "request_duration_seconds",
				Help:      "Monitoring service request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		upstreamHealthy: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "busscope",
				Subsystem: "upstream",
				Name:      "healthy",
				Help:      "1 when the last connectivity check succeeded",
			},
		),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "busscope",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "API requests by route and status code",
			},
			[]string{"route", "code"},
		),

		snapshotsSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "busscope",
				Subsystem: "store",
				Name:      "snapshots_saved_total",
				Help:      "Snapshot saves by whether new content was written",
			},
			[]string{"inserted"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.reconstructions,
		m.reconstructionDuration,
		m.orphanRoots,
		m.upstreamRequests,
		m.upstreamDuration,
		m.upstreamHealthy,
		m.httpRequests,
		m.snapshotsSaved,
	)
	return m
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observer adapts the metrics to servicecontrol.WithObserver.
func (m *Metrics) Observer() servicecontrol.Observer {
	return func(operation, outcome string, elapsed time.Duration) {
		m.upstreamRequests.WithLabelValues(operation, outcome).Inc()
		m.upstreamDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
}

// SetUpstreamHealthy records the result of a connectivity check.
func (m *Metrics) SetUpstreamHealthy(healthy bool) {
	if healthy {
		m.upstreamHealthy.Set(1)
		return
	}
	m.upstreamHealthy.Set(0)
}

func (m *Metrics) recordReconstruction(result string, elapsed time.Duration, orphans int) {
	m.reconstructions.WithLabelValues(result).Inc()
	m.reconstructionDuration.Observe(elapsed.Seconds())
	if orphans > 0 {
		m.orphanRoots.Add(float64(orphans))
	}
}
