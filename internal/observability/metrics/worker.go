package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics holds the worker-process registry: batch throughput and
// per-capture outcomes.
type WorkerMetrics struct {
	registry *prometheus.Registry

	batchTotal    *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	batchInFlight prometheus.Gauge
	batchRooms    *prometheus.HistogramVec
	captureTotal  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	batchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hse",
			Subsystem: "worker",
			Name:      "batch_total",
			Help:      "Total processed analysis batches by status.",
		},
		[]string{"service", "status"},
	)
	batchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hse",
			Subsystem: "worker",
			Name:      "batch_duration_seconds",
			Help:      "Batch processing duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	batchInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hse",
			Subsystem: "worker",
			Name:      "batch_in_flight",
			Help:      "Number of in-flight analysis batches.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	batchRooms := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hse",
			Subsystem: "worker",
			Name:      "batch_rooms",
			Help:      "Distribution of rooms analyzed per batch.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)
	captureTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hse",
			Subsystem: "worker",
			Name:      "capture_total",
			Help:      "Total analyzed captures by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(batchTotal, batchDuration, batchInFlight, batchRooms, captureTotal)

	return &WorkerMetrics{
		registry:      registry,
		batchTotal:    batchTotal,
		batchDuration: batchDuration,
		batchInFlight: batchInFlight,
		batchRooms:    batchRooms,
		captureTotal:  captureTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartBatch() {
	m.batchInFlight.Inc()
}

func (m *WorkerMetrics) FinishBatch(service string, duration time.Duration, rooms int, err error) {
	m.batchInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.batchTotal.WithLabelValues(service, status).Inc()
	m.batchDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if rooms > 0 {
		m.batchRooms.WithLabelValues(service).Observe(float64(rooms))
	}
}

func (m *WorkerMetrics) RecordCapture(service string, failed bool) {
	outcome := "analyzed"
	if failed {
		outcome = "failed"
	}
	m.captureTotal.WithLabelValues(service, outcome).Inc()
}
