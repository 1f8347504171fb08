package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type staticChecker struct{ status HealthStatus }

func (c staticChecker) Check(context.Context) HealthStatus { return c.status }

func TestPrometheusExport(t *testing.T) {
	metrics := NewCounterMetrics()
	metrics.RecordEventProcessed("BidPlaced", true, time.Millisecond)
	metrics.RecordEventProcessed("BidPlaced", false, time.Millisecond)

	exp := NewPrometheusExporter(staticChecker{HealthStatus{Healthy: true, EventsProcessed: 7, PendingEvents: 2}}, metrics)
	out := exp.Export(context.Background())

	assert.Contains(t, out, "outbox_healthy 1")
	assert.Contains(t, out, "outbox_pending_events 2")
	assert.Contains(t, out, "outbox_events_processed_total 7")
	assert.Contains(t, out, `outbox_publish_total{event_type="BidPlaced",result="success"} 1`)
	assert.Contains(t, out, `outbox_publish_total{event_type="BidPlaced",result="failure"} 1`)
}
