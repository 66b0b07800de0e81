// internal/models/task.go
package models

import "time"

// MaxTaskPhotos is the upper bound of proof photos attached to one task.
const MaxTaskPhotos = 10

// Task represents the structure of a task in the system.
type Task struct {
	ID              int64     `json:"id"`
	CompanyID       int64     `json:"company_id"`
	CreatedBy       int64     `json:"created_by"`
	WorkerID        *int64    `json:"worker_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	RequiresPhoto   bool      `json:"requires_photo"`
	PhotoURLs       []string  `json:"photo_urls"`
	PhotoURL        string    `json:"photo_url,omitempty"` // legacy primary photo, mirrors PhotoURLs[last]
	ExamplePhotoURL string    `json:"example_photo_url,omitempty"`
	IsCompleted     bool      `json:"is_completed"`
	WeekDays        WeekDays  `json:"week_days"`
	MonthDay        *int      `json:"month_day"`
	IsRecurring     bool      `json:"is_recurring"`
	Price           int64     `json:"price"`
	// CreditedTo and CreditedAmount record the payout of the current completion,
	// so reopening debits what was paid even after a price edit or reassignment.
	CreditedTo      *int64    `json:"-"`
	CreditedAmount  int64     `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasProof reports whether at least one proof photo is attached.
func (t *Task) HasProof() bool {
	return len(t.PhotoURLs) > 0 || t.PhotoURL != ""
}

// AssignedTo reports whether the task belongs to the given user.
func (t *Task) AssignedTo(userID int64) bool {
	return t.WorkerID != nil && *t.WorkerID == userID
}

// PhotoRefs returns every photo reference held by the task, legacy one included, without duplicates.
func (t *Task) PhotoRefs() []string {
	seen := make(map[string]struct{}, len(t.PhotoURLs)+1)
	var out []string
	for _, ref := range append(append([]string{}, t.PhotoURLs...), t.PhotoURL) {
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// SetPhotos replaces the proof photos and keeps the legacy field pointing at the last one.
func (t *Task) SetPhotos(urls []string) {
	t.PhotoURLs = urls
	if len(urls) == 0 {
		t.PhotoURL = ""
		return
	}
	t.PhotoURL = urls[len(urls)-1]
}

// TaskFilter defines the available parameters for filtering tasks.
type TaskFilter struct {
	CompanyID *int64
	WorkerID  *int64
	Category  *string
}

// TaskPatch carries the admin-editable fields of a task. Nil means "leave as is".
type TaskPatch struct {
	Title           *string   `json:"title"`
	Description     *string   `json:"description"`
	Category        *string   `json:"category"`
	WorkerID        *int64    `json:"worker_id"`
	ClearWorker     bool      `json:"clear_worker"`
	RequiresPhoto   *bool     `json:"requires_photo"`
	ExamplePhotoURL *string   `json:"example_photo_url"`
	WeekDays        *WeekDays `json:"week_days"`
	MonthDay        *int      `json:"month_day"`
	ClearMonthDay   bool      `json:"clear_month_day"`
	IsRecurring     *bool     `json:"is_recurring"`
	Price           *int64    `json:"price"`
}
