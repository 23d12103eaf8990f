// Package metrics declares the self-monitoring vectors for the SOC core
// pipeline: ingestion, rule evaluation, notification dispatch, realtime
// fan-out and playbook execution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soc_core_events_ingested_total",
			Help: "Total number of events accepted by the ingestion path",
		},
		[]string{"source", "severity"},
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soc_core_events_rejected_total",
			Help: "Total number of event drafts rejected by validation",
		},
		[]string{"reason"},
	)

	RulesEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soc_core_rules_evaluated_total",
			Help: "Total number of rule evaluations performed",
		},
	)

	RulesTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soc_core_rules_triggered_total",
			Help: "Total number of rule trigger occurrences",
		},
		[]string{"action"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soc_core_notifications_sent_total",
			Help: "Notification dispatch outcomes by channel",
		},
		[]string{"channel", "outcome"}, // outcome: success, failure, dropped
	)

	EvaluationPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soc_core_evaluation_pass_duration_seconds",
			Help:    "Duration of a full scheduler evaluation pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulerTicksSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soc_core_scheduler_ticks_skipped_total",
			Help: "Ticks skipped because a prior evaluation pass was still running",
		},
	)

	ActiveWebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soc_core_websocket_clients_active",
			Help: "Number of connected realtime clients",
		},
	)

	BroadcastsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soc_core_broadcasts_sent_total",
			Help: "Messages fanned out to realtime rooms",
		},
		[]string{"room"},
	)

	PlaybookExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soc_core_playbook_executions_total",
			Help: "Playbook executions reaching a given terminal state, plus starts",
		},
		[]string{"status"}, // in_progress on start, then the terminal state
	)

	EventsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soc_core_events_purged_total",
			Help: "Resolved events removed by the retention job",
		},
	)
)
