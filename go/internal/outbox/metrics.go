package outbox

import (
	"context"
	"sync"
	"time"
)

// MetricsCollector defines the interface for collecting outbox metrics
type MetricsCollector interface {
	RecordEventProcessed(eventType string, success bool, duration time.Duration)
	RecordBatchProcessed(count int, duration time.Duration)
	RecordOutboxLag(lag int)
	RecordPublishAttempt(eventType string, attempt int, success bool)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
}
func (n *NoOpMetricsCollector) RecordBatchProcessed(count int, duration time.Duration)           {}
func (n *NoOpMetricsCollector) RecordOutboxLag(lag int)                                          {}
func (n *NoOpMetricsCollector) RecordPublishAttempt(eventType string, attempt int, success bool) {}

// CounterMetrics keeps running totals in memory for the health exporter.
type CounterMetrics struct {
	mu        sync.Mutex
	published map[string]uint64
	failed    map[string]uint64
	attempts  uint64
	batches   uint64
	lag       int
}

func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{
		published: make(map[string]uint64),
		failed:    make(map[string]uint64),
	}
}

func (m *CounterMetrics) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.published[eventType]++
	} else {
		m.failed[eventType]++
	}
}

func (m *CounterMetrics) RecordBatchProcessed(count int, duration time.Duration) {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
}

func (m *CounterMetrics) RecordOutboxLag(lag int) {
	m.mu.Lock()
	m.lag = lag
	m.mu.Unlock()
}

func (m *CounterMetrics) RecordPublishAttempt(eventType string, attempt int, success bool) {
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()
}

// MetricsSnapshot is a point-in-time copy of CounterMetrics.
type MetricsSnapshot struct {
	Published map[string]uint64
	Failed    map[string]uint64
	Attempts  uint64
	Batches   uint64
	Lag       int
}

func (m *CounterMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := MetricsSnapshot{
		Published: make(map[string]uint64, len(m.published)),
		Failed:    make(map[string]uint64, len(m.failed)),
		Attempts:  m.attempts,
		Batches:   m.batches,
		Lag:       m.lag,
	}
	for k, v := range m.published {
		snap.Published[k] = v
	}
	for k, v := range m.failed {
		snap.Failed[k] = v
	}
	return snap
}

// MetricPublisher wraps an EventPublisher with metrics collection
type MetricPublisher struct {
	publisher EventPublisher
	metrics   MetricsCollector
}

func NewMetricPublisher(publisher EventPublisher, metrics MetricsCollector) *MetricPublisher {
	return &MetricPublisher{
		publisher: publisher,
		metrics:   metrics,
	}
}

func (p *MetricPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	start := time.Now()

	err := p.publisher.Publish(ctx, event)

	p.metrics.RecordEventProcessed(event.EventType, err == nil, time.Since(start))
	return err
}
