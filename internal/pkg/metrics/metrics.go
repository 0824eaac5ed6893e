// Package metrics defines and registers all custom Prometheus metrics for the
// hive dashboard gateway and the development backend. It is the single source
// of truth for metric names, labels, and help strings.
//
// Metrics are registered with the default registry on package init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

const namespace = "hive"

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionEventsTotal counts identity changes observed by the session manager.
// Label:
//   - reason: login, register, demo, restored, logout, expired
var SessionEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Total number of identity changes, by reason.",
	},
	[]string{"reason"},
)

// SessionAuthFailuresTotal counts failed login, register and demo attempts.
// Labels:
//   - op: login, register, demo
//   - kind: rejected or unavailable
var SessionAuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_auth_failures_total",
		Help:      "Total number of failed authentication attempts against the backend.",
	},
	[]string{"op", "kind"},
)

// SessionActive is 1 while an identity is held, labelled by role.
var SessionActive = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_active",
		Help:      "Whether an identity is currently active, by role.",
	},
	[]string{"role"},
)

// BackendRequestDuration measures calls made by the gateway to the backend.
// Labels:
//   - op: the client operation (e.g. "list_hives")
//   - code: HTTP status code, or "error" when no response was received
var BackendRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Duration of requests made by the gateway to the hive backend.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op", "code"},
)

// ── Reading metrics ───────────────────────────────────────────────────────────

// ReadingsProcessedTotal counts readings that completed processing successfully.
var ReadingsProcessedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_processed_total",
		Help:      "Total number of sensor readings successfully processed.",
	},
)

// ReadingsErrorsTotal counts readings that failed processing.
// Label:
//   - reason: "hive_not_found", "insert_failed", "alert_failed", "update_failed"
var ReadingsErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_errors_total",
		Help:      "Total number of sensor readings that failed processing.",
	},
	[]string{"reason"},
)

// ReadingsDedupTotal counts deduplication decisions.
// Label:
//   - result: "hit" (duplicate, skipped) or "miss" (new reading, processed)
var ReadingsDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_dedup_total",
		Help:      "Total number of deduplication checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// ReadingsQueueDepth tracks the number of readings waiting in each worker channel.
var ReadingsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readings_queue_depth",
		Help:      "Current number of readings pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ReadingProcessingDuration measures how long a single reading takes end-to-end.
var ReadingProcessingDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reading_processing_duration_seconds",
		Help:      "Duration of reading processing from dequeue to persistence.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
)

// AlertsRaisedTotal counts alerts raised from readings.
var AlertsRaisedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_raised_total",
		Help:      "Total number of alerts raised, by kind and severity.",
	},
	[]string{"kind", "severity"},
)

// SessionObserver returns a subscriber that keeps the session metrics in
// step with the identity changes it receives.
func SessionObserver() func(domain.SessionEvent) {
	return func(ev domain.SessionEvent) {
		SessionEventsTotal.WithLabelValues(string(ev.Reason)).Inc()
		SessionActive.Reset()
		if ev.Identity != nil {
			SessionActive.WithLabelValues(string(ev.Identity.Role)).Set(1)
		}
	}
}
