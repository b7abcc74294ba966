package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublisherMetrics records outcomes of the outbox publishing loop.
type PublisherMetrics struct {
	batchDuration prometheus.Histogram
	published     prometheus.Counter
	failed        prometheus.Counter
}

// NewPublisherMetrics registers the publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events successfully published.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_failed_total",
		Help: "Outbox events that failed to publish.",
	})
	reg.MustRegister(batchDuration, published, failed)
	return &PublisherMetrics{
		batchDuration: batchDuration,
		published:     published,
		failed:        failed,
	}
}

// ObserveBatch records the duration of one publish batch.
func (m *PublisherMetrics) ObserveBatch(elapsed time.Duration) {
	if m == nil || m.batchDuration == nil {
		return
	}
	m.batchDuration.Observe(elapsed.Seconds())
}

// IncPublished increments the published counter.
func (m *PublisherMetrics) IncPublished() {
	if m == nil || m.published == nil {
		return
	}
	m.published.Inc()
}

// IncFailed increments the failure counter.
func (m *PublisherMetrics) IncFailed() {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.Inc()
}
