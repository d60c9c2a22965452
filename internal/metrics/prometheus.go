// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the engagement engine.
var (
	// Counters.
	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Total number of badges awarded",
		},
		[]string{"badge", "category"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total number of automation emails dispatched",
		},
		[]string{"trigger", "status"},
	)

	AutomationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_runs_total",
			Help: "Total number of automation executions",
		},
		[]string{"trigger", "status"},
	)

	GiftCardsOrderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_cards_ordered_total",
			Help: "Total number of gift card orders",
		},
		[]string{"tier", "status"},
	)

	DrawingsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drawings_completed_total",
			Help: "Total number of completed monthly drawings",
		},
		[]string{"tier"},
	)

	// Gauges.
	ScheduledAutomations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduled_automations",
			Help: "Current number of automations with a registered trigger",
		},
	)

	ActiveBadgeHolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_badge_holders",
			Help: "Current number of users holding each badge",
		},
		[]string{"badge"},
	)

	SchedulerLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp_seconds",
			Help: "Unix timestamp of each trigger's last firing",
		},
		[]string{"trigger"},
	)

	// Histograms.
	AutomationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automation_duration_seconds",
			Help:    "Duration of automation executions",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.4min
		},
		[]string{"trigger"},
	)
)

// RecordBadgeAwarded increments the badge award counter.
func RecordBadgeAwarded(badge, category string) {
	BadgesAwardedTotal.WithLabelValues(badge, category).Inc()
}

// RecordEmailSent increments the email counter with the given status.
func RecordEmailSent(trigger, status string) {
	EmailsSentTotal.WithLabelValues(trigger, status).Inc()
}

// RecordAutomationRun increments the automation run counter.
func RecordAutomationRun(trigger, status string) {
	AutomationRunsTotal.WithLabelValues(trigger, status).Inc()
}

// RecordGiftCardOrdered increments the gift card order counter.
func RecordGiftCardOrdered(tier, status string) {
	GiftCardsOrderedTotal.WithLabelValues(tier, status).Inc()
}

// RecordDrawingCompleted increments the completed drawing counter.
func RecordDrawingCompleted(tier string) {
	DrawingsCompletedTotal.WithLabelValues(tier).Inc()
}

// SetScheduledAutomations updates the scheduled automation gauge.
func SetScheduledAutomations(count int) {
	ScheduledAutomations.Set(float64(count))
}

// SetActiveBadgeHolders updates the holder count gauge for a badge.
func SetActiveBadgeHolders(badge string, count int) {
	ActiveBadgeHolders.WithLabelValues(badge).Set(float64(count))
}

// SetSchedulerLastRun records the current time as a trigger's last run.
func SetSchedulerLastRun(trigger string) {
	SchedulerLastRun.WithLabelValues(trigger).Set(float64(time.Now().Unix()))
}

// ObserveAutomationDuration records an execution duration in seconds.
func ObserveAutomationDuration(trigger string, seconds float64) {
	AutomationDurationSeconds.WithLabelValues(trigger).Observe(seconds)
}
