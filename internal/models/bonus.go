package models

import "time"

type BonusReason string

const (
	BonusCompletion   BonusReason = "completion"
	BonusUncompletion BonusReason = "uncompletion"
	BonusReset        BonusReason = "reset"
)

// BonusEntry is one signed movement of a worker's bonus balance.
// The balance always equals the sum of the user's entries.
type BonusEntry struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	TaskID    *int64      `json:"task_id,omitempty"`
	Amount    int64       `json:"amount"`
	Reason    BonusReason `json:"reason"`
	Ref       string      `json:"ref"`
	CreatedAt time.Time   `json:"created_at"`
}
