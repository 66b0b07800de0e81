package taskengine

import (
	"taskdesk/internal/authz"
	"taskdesk/internal/models"
)

// Outcome is the decision of a completion transition.
// Task is the state to persist; when Changed is false nothing is written.
// BalanceDelta moves the balance of Beneficiary and is zero when no money moves.
type Outcome struct {
	Task         models.Task
	Changed      bool
	BalanceDelta int64
	Beneficiary  *int64
	Reason       models.BonusReason
}

// CanComplete reports whether the actor may mark the task done.
func CanComplete(t models.Task, actor authz.Actor) bool {
	return actor.IsAdmin() || t.AssignedTo(actor.UserID)
}

// Complete moves an incomplete task to completed and credits its price to the
// assigned worker. Completing an already completed task changes nothing.
func Complete(t models.Task, actor authz.Actor) (Outcome, error) {
	if !CanComplete(t, actor) {
		return Outcome{}, ErrForbidden
	}
	if t.IsCompleted {
		return Outcome{Task: t}, nil
	}
	if t.RequiresPhoto && !t.HasProof() {
		return Outcome{}, ErrPhotoRequired
	}

	t.IsCompleted = true
	t.CreditedTo, t.CreditedAmount = nil, 0
	out := Outcome{Task: t, Changed: true, Reason: models.BonusCompletion}
	if t.Price > 0 && t.WorkerID != nil {
		worker := *t.WorkerID
		out.Beneficiary = &worker
		out.BalanceDelta = t.Price
		out.Task.CreditedTo = &worker
		out.Task.CreditedAmount = t.Price
	}
	return out, nil
}

// Uncomplete returns a completed task to the queue and debits exactly what
// Complete credited, from the user it was credited to. The current price and
// assignee do not matter. Any authenticated actor may do this. An incomplete
// task is left alone.
func Uncomplete(t models.Task, _ authz.Actor) (Outcome, error) {
	if !t.IsCompleted {
		return Outcome{Task: t}, nil
	}

	credited, amount := t.CreditedTo, t.CreditedAmount
	t.IsCompleted = false
	t.CreditedTo, t.CreditedAmount = nil, 0
	out := Outcome{Task: t, Changed: true, Reason: models.BonusUncompletion}
	if credited != nil && amount != 0 {
		user := *credited
		out.Beneficiary = &user
		out.BalanceDelta = -amount
	}
	return out, nil
}
