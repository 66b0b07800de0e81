package taskengine

import "taskdesk/internal/models"

// NeedsReset reports whether the daily sweep should reopen the task.
func NeedsReset(t models.Task) bool {
	return t.IsRecurring && t.IsCompleted
}

// ClearForReset reopens a task for the new cycle and returns the photo
// references it released. Price, title, schedule and example photo are kept.
// The payout of the finished cycle stays with the worker, so the task forgets it.
func ClearForReset(t models.Task) (models.Task, []string) {
	released := t.PhotoRefs()
	t.IsCompleted = false
	t.CreditedTo, t.CreditedAmount = nil, 0
	t.SetPhotos(nil)
	return t, released
}

// ResetRecurring applies ClearForReset to every task that needs it.
// Only the reset tasks are returned, together with all released references.
// Balances are not part of the sweep.
func ResetRecurring(tasks []models.Task) ([]models.Task, []string) {
	var (
		updated  []models.Task
		released []string
	)
	for _, t := range tasks {
		if !NeedsReset(t) {
			continue
		}
		next, refs := ClearForReset(t)
		updated = append(updated, next)
		released = append(released, refs...)
	}
	return updated, released
}
