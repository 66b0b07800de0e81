// Package taskengine decides which tasks are due on a date and how
// completion, uncompletion and the recurring reset change a task.
// It holds no state and never reads the wall clock.
package taskengine

import (
	"time"

	"taskdesk/internal/authz"
	"taskdesk/internal/models"
)

// IsDueToday reports whether the task's recurrence fields match today.
// Month day and week days combine with AND; an empty week-day set is unrestricted.
func IsDueToday(t models.Task, today time.Time) bool {
	if t.MonthDay != nil && today.Day() != *t.MonthDay {
		return false
	}
	if t.WeekDays.Restricted() && !t.WeekDays.Contains(today.Weekday()) {
		return false
	}
	return true
}

// VisibleToday returns the tasks the viewer sees on the given date.
// Admins get the full backlog; workers get their own tasks due today.
// An empty category matches everything.
func VisibleToday(tasks []models.Task, viewer authz.Actor, today time.Time, category string) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if category != "" && t.Category != category {
			continue
		}
		if viewer.IsAdmin() {
			out = append(out, t)
			continue
		}
		if !t.AssignedTo(viewer.UserID) || !IsDueToday(t, today) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ValidateRecurrence checks week-day codes (0..6, no repeats) and month day (1..31).
func ValidateRecurrence(weekDays models.WeekDays, monthDay *int) error {
	seen := map[int]bool{}
	for _, d := range weekDays {
		if d < 0 || d > 6 || seen[d] {
			return &RecurrenceError{Field: "week_days", Value: d}
		}
		seen[d] = true
	}
	if monthDay != nil && (*monthDay < 1 || *monthDay > 31) {
		return &RecurrenceError{Field: "month_day", Value: *monthDay}
	}
	return nil
}
