package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records processing outcomes for gateway webhook deliveries.
type WebhookMetrics struct {
	duration  *prometheus.HistogramVec
	processed *prometheus.CounterVec
	duplicate *prometheus.CounterVec
	failure   *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_duration_seconds",
		Help:    "Duration of webhook event processing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway", "event_type"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_processed",
		Help: "Webhook events processed to completion.",
	}, []string{"gateway", "event_type"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_duplicate",
		Help: "Webhook deliveries dropped as already processed.",
	}, []string{"gateway", "event_type"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_failure",
		Help: "Webhook deliveries that failed processing.",
	}, []string{"gateway", "event_type"})
	reg.MustRegister(duration, processed, duplicate, failure)
	return &WebhookMetrics{
		duration:  duration,
		processed: processed,
		duplicate: duplicate,
		failure:   failure,
	}
}

// ObserveDuration records processing time for a delivery.
func (w *WebhookMetrics) ObserveDuration(gateway, eventType string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(gateway), normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncProcessed increments the processed counter.
func (w *WebhookMetrics) IncProcessed(gateway, eventType string) {
	if w == nil || w.processed == nil {
		return
	}
	w.processed.WithLabelValues(normalizeLabel(gateway), normalizeLabel(eventType)).Inc()
}

// IncDuplicate increments the duplicate counter.
func (w *WebhookMetrics) IncDuplicate(gateway, eventType string) {
	if w == nil || w.duplicate == nil {
		return
	}
	w.duplicate.WithLabelValues(normalizeLabel(gateway), normalizeLabel(eventType)).Inc()
}

// IncFailure increments the failure counter.
func (w *WebhookMetrics) IncFailure(gateway, eventType string) {
	if w == nil || w.failure == nil {
		return
	}
	w.failure.WithLabelValues(normalizeLabel(gateway), normalizeLabel(eventType)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
