package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type HealthStatus struct {
	Healthy           bool
	LastEventTime     time.Time
	EventsProcessed   uint64
	PendingEvents     int64
	DatabaseConnected bool
	NATSConnected     bool
	ListenerActive    bool
	Errors            []string
}

type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type RelayHealthChecker struct {
	relay     *Relay
	listener  *Listener
	db        Pinger
	natsConn  *nats.Conn
	threshold time.Duration // How long without events before unhealthy
}

func NewRelayHealthChecker(relay *Relay, listener *Listener, db Pinger, natsConn *nats.Conn, threshold time.Duration) *RelayHealthChecker {
	return &RelayHealthChecker{
		relay:     relay,
		listener:  listener,
		db:        db,
		natsConn:  natsConn,
		threshold: threshold,
	}
}

func (h *RelayHealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Errors:  []string{},
	}

	status.EventsProcessed, status.LastEventTime = h.relay.Stats()

	if err := h.db.PingContext(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	if h.natsConn != nil {
		status.NATSConnected = h.natsConn.IsConnected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if h.listener != nil {
		status.ListenerActive = h.listener.Running()
		if !status.ListenerActive {
			status.Healthy = false
			status.Errors = append(status.Errors, "listener not active")
		}
	}

	if status.DatabaseConnected {
		pending, err := h.relay.app.PendingCount(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
		} else {
			status.PendingEvents = pending
			if pending > 1000 {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
			}
		}
	}

	if status.PendingEvents > 0 && !status.LastEventTime.IsZero() {
		since := h.relay.clock.Since(status.LastEventTime)
		if since > h.threshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no events processed for %s", since))
		}
	}

	return status
}

func (h *RelayHealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	response := map[string]interface{}{
		"healthy":            status.Healthy,
		"events_processed":   status.EventsProcessed,
		"pending_events":     status.PendingEvents,
		"last_event_time":    status.LastEventTime,
		"database_connected": status.DatabaseConnected,
		"nats_connected":     status.NATSConnected,
		"listener_active":    status.ListenerActive,
		"errors":             status.Errors,
	}

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(response)
}

// PrometheusExporter renders health and counters in the text exposition format.
type PrometheusExporter struct {
	checker HealthChecker
	metrics *CounterMetrics
}

func NewPrometheusExporter(checker HealthChecker, metrics *CounterMetrics) *PrometheusExporter {
	return &PrometheusExporter{checker: checker, metrics: metrics}
}

func (e *PrometheusExporter) Export(ctx context.Context) string {
	status := e.checker.Check(ctx)

	var b strings.Builder
	gauge := func(name, help string, v interface{}) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n%s %v\n\n", name, help, name, name, v)
	}
	gauge("outbox_healthy", "Whether the outbox relay is healthy", boolToInt(status.Healthy))
	gauge("outbox_pending_events", "Current number of pending events", status.PendingEvents)
	gauge("outbox_database_connected", "Whether database is connected", boolToInt(status.DatabaseConnected))
	gauge("outbox_nats_connected", "Whether NATS is connected", boolToInt(status.NATSConnected))
	gauge("outbox_listener_active", "Whether the listener is active", boolToInt(status.ListenerActive))
	gauge("outbox_last_event_timestamp", "Unix timestamp of last processed event", status.LastEventTime.Unix())

	fmt.Fprintf(&b, "# HELP outbox_events_processed_total Total number of events processed\n# TYPE outbox_events_processed_total counter\noutbox_events_processed_total %d\n", status.EventsProcessed)

	if e.metrics != nil {
		snap := e.metrics.Snapshot()
		fmt.Fprintf(&b, "\n# HELP outbox_publish_total Publish outcomes by event type\n# TYPE outbox_publish_total counter\n")
		for _, t := range sortedKeys(snap.Published) {
			fmt.Fprintf(&b, "outbox_publish_total{event_type=%q,result=\"success\"} %d\n", t, snap.Published[t])
		}
		for _, t := range sortedKeys(snap.Failed) {
			fmt.Fprintf(&b, "outbox_publish_total{event_type=%q,result=\"failure\"} %d\n", t, snap.Failed[t])
		}
	}
	return b.String()
}

func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(e.Export(r.Context())))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
