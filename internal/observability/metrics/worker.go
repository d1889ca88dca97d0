package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal     *prometheus.CounterVec
	processDuration  *prometheus.HistogramVec
	processInFlight  prometheus.Gauge
	queueLag         *prometheus.HistogramVec
	retriesScheduled *prometheus.CounterVec
	fraudScore       *prometheus.HistogramVec
	manualReview     *prometheus.CounterVec
	queueDepth       *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dvp",
			Subsystem: "worker",
			Name:      "document_process_total",
			Help:      "Total processed documents by outcome.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dvp",
			Subsystem: "worker",
			Name:      "document_process_duration_seconds",
			Help:      "Document analysis duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dvp",
			Subsystem: "worker",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight document analyses.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dvp",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between enqueue and claim.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	retriesScheduled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dvp",
			Subsystem: "worker",
			Name:      "retries_scheduled_total",
			Help:      "Total analysis attempts that scheduled a retry.",
		},
		[]string{"service"},
	)
	fraudScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dvp",
			Subsystem: "fraud",
			Name:      "score",
			Help:      "Distribution of computed fraud scores.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"service", "risk_tier"},
	)
	manualReview := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dvp",
			Subsystem: "fraud",
			Name:      "manual_review_total",
			Help:      "Total assessments flagged for manual review.",
		},
		[]string{"service"},
	)
	queueDepth := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dvp",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Queue entries by status, sampled by the reaper loop.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, retriesScheduled, fraudScore, manualReview, queueDepth)

	return &WorkerMetrics{
		registry:         registry,
		processTotal:     processTotal,
		processDuration:  processDuration,
		processInFlight:  processInFlight,
		queueLag:         queueLag,
		retriesScheduled: retriesScheduled,
		fraudScore:       fraudScore,
		manualReview:     manualReview,
		queueDepth:       queueDepth,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RetryScheduled(service string) {
	m.retriesScheduled.WithLabelValues(service).Inc()
}

func (m *WorkerMetrics) ObserveFraudScore(service, riskTier string, score float64, manualReview bool) {
	m.fraudScore.WithLabelValues(service, riskTier).Observe(score)
	if manualReview {
		m.manualReview.WithLabelValues(service).Inc()
	}
}

func (m *WorkerMetrics) SetQueueDepth(service, status string, n int) {
	m.queueDepth.WithLabelValues(service, status).Set(float64(n))
}
