// Package metrics holds the Prometheus collectors of the task engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskdesk_task_transitions_total",
		Help: "Completion state transitions applied to tasks.",
	}, []string{"transition"})

	TaskTransitionNoops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskdesk_task_transition_noops_total",
		Help: "Completion requests that found the task already in the requested state.",
	}, []string{"transition"})

	BonusMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskdesk_bonus_moved_total",
		Help: "Sum of bonus amounts credited or debited by transitions.",
	}, []string{"direction"})

	RecurringResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskdesk_recurring_resets_total",
		Help: "Recurring tasks reopened by the daily sweep.",
	})

	PhotoDeleteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskdesk_photo_delete_failures_total",
		Help: "Photo files the storage could not delete.",
	})

	BalanceResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskdesk_balance_resets_total",
		Help: "Explicit bonus balance resets by admins.",
	})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskdesk_notification_failures_total",
		Help: "Completion notifications that could not be delivered.",
	}, []string{"channel"})
)

// RecordBonus adds a signed balance movement to the credit or debit series.
func RecordBonus(delta int64) {
	switch {
	case delta > 0:
		BonusMoved.WithLabelValues("credit").Add(float64(delta))
	case delta < 0:
		BonusMoved.WithLabelValues("debit").Add(float64(-delta))
	}
}
