package core

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/insightslm/insightslm/pkg/metrics"
)

type Metrics struct {
	apiResponseTime   *prometheus.HistogramVec
	apiErrorCounter   *prometheus.CounterVec
	webhookTime       *prometheus.HistogramVec
	webhookCounter    *prometheus.CounterVec
	ingestCounter     *prometheus.CounterVec
	generationTrigger *prometheus.CounterVec
	playbackRecovery  *prometheus.CounterVec
	viewerSessions    *prometheus.GaugeVec
}

var metricsRegistry = prometheus.NewRegistry()

func NewMetrics(ns, system string) *Metrics {
	// setup metric
	metrics.SetupMetricsManager(ns, system, metricsRegistry)

	m := &Metrics{
		apiResponseTime:   metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:   metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),
		webhookTime:       metrics.NewHistogramVecWithBuckets("webhook_request_time", []string{"target"}, []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300}),
		webhookCounter:    metrics.NewCounterVec("webhook_request", []string{"target", "outcome"}),
		ingestCounter:     metrics.NewCounterVec("ingest_pipeline", []string{"stage", "outcome"}),
		generationTrigger: metrics.NewCounterVec("generation_trigger", []string{"result"}),
		playbackRecovery:  metrics.NewCounterVec("playback_recovery", []string{"strategy", "outcome"}),
		viewerSessions:    metrics.NewGaugeVec("viewer_sessions", nil),
	}

	return m
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

func (m *Metrics) WebhookObserve(target, outcome string, elapsed time.Duration) {
	m.webhookTime.WithLabelValues(target).Observe(elapsed.Seconds())
	m.webhookCounter.WithLabelValues(target, outcome).Inc()
}

func (m *Metrics) IngestInc(stage string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ingestCounter.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) GenerationTriggerInc(won bool) {
	result := "lost"
	if won {
		result = "won"
	}
	m.generationTrigger.WithLabelValues(result).Inc()
}

func (m *Metrics) PlaybackRecoveryInc(strategy, outcome string) {
	m.playbackRecovery.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) SetViewerSessions(n int) {
	m.viewerSessions.WithLabelValues().Set(float64(n))
}
