// internal/services/task_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskdesk/internal/authz"
	"taskdesk/internal/metrics"
	"taskdesk/internal/models"
	"taskdesk/internal/repositories"
	"taskdesk/internal/taskengine"
)

// FileRemover deletes a stored photo by its reference. The file must lie inside dir.
type FileRemover interface {
	Remove(dir, ref string) error
}

// TaskService defines the interface for task-related business logic.
type TaskService interface {
	Create(ctx context.Context, actor authz.Actor, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, actor authz.Actor, id int64) (*models.Task, error)
	ListVisible(ctx context.Context, actor authz.Actor, today time.Time, category string) ([]models.Task, error)
	Update(ctx context.Context, actor authz.Actor, id int64, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, actor authz.Actor, id int64) error

	AddPhoto(ctx context.Context, actor authz.Actor, id int64, ref string) (*models.Task, error)
	RemovePhoto(ctx context.Context, actor authz.Actor, id int64, index int) (*models.Task, error)

	Complete(ctx context.Context, actor authz.Actor, id int64) (*models.Task, error)
	Uncomplete(ctx context.Context, actor authz.Actor, id int64) (*models.Task, error)
}

type taskService struct {
	repo     repositories.TaskRepository
	users    repositories.UserRepository
	files    FileRemover
	notifier Notifier
	now      func() time.Time
}

// NewTaskService creates a new instance of TaskService.
// files and notifier may be nil.
func NewTaskService(repo repositories.TaskRepository, users repositories.UserRepository, files FileRemover, notifier Notifier) TaskService {
	return &taskService{repo: repo, users: users, files: files, notifier: notifier, now: time.Now}
}

func (s *taskService) Create(ctx context.Context, actor authz.Actor, task *models.Task) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, taskengine.ErrForbidden
	}
	task.Title = strings.TrimSpace(task.Title)
	if err := validateTask(task); err != nil {
		return nil, err
	}
	if err := s.checkWorker(ctx, actor, task.WorkerID); err != nil {
		return nil, err
	}

	task.CompanyID = actor.CompanyID
	task.CreatedBy = actor.UserID
	task.WeekDays = task.WeekDays.Normalized()
	task.IsCompleted = false
	task.SetPhotos(nil)
	now := s.now()
	task.CreatedAt = now
	task.UpdatedAt = now

	if err := s.repo.Store(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func validateTask(task *models.Task) error {
	if task.Title == "" {
		return fmt.Errorf("title is required: %w", taskengine.ErrInvalidTask)
	}
	if task.Price < 0 {
		return fmt.Errorf("price must not be negative: %w", taskengine.ErrInvalidTask)
	}
	if taskengine.IsProofRef(task.ExamplePhotoURL) {
		return fmt.Errorf("example photo must not point into proof photos: %w", taskengine.ErrInvalidTask)
	}
	return taskengine.ValidateRecurrence(task.WeekDays, task.MonthDay)
}

// checkWorker makes sure an assignee exists inside the admin's company.
func (s *taskService) checkWorker(ctx context.Context, actor authz.Actor, workerID *int64) error {
	if workerID == nil || s.users == nil {
		return nil
	}
	u, err := s.users.GetByID(ctx, *workerID)
	if err != nil {
		return fmt.Errorf("worker %d: %w", *workerID, err)
	}
	if u.CompanyID != actor.CompanyID {
		return fmt.Errorf("worker %d: %w", *workerID, taskengine.ErrNotFound)
	}
	return nil
}

// load fetches a task of the actor's company; other tenants' tasks do not exist for the caller.
func (s *taskService) load(ctx context.Context, actor authz.Actor, id int64) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.CompanyID != actor.CompanyID {
		return nil, fmt.Errorf("task %d: %w", id, taskengine.ErrNotFound)
	}
	return task, nil
}

func (s *taskService) GetByID(ctx context.Context, actor authz.Actor, id int64) (*models.Task, error) {
	return s.load(ctx, actor, id)
}

func (s *taskService) ListVisible(ctx context.Context, actor authz.Actor, today time.Time, category string) ([]models.Task, error) {
	filter := models.TaskFilter{CompanyID: &actor.CompanyID}
	if !actor.IsAdmin() {
		workerID := actor.UserID
		filter.WorkerID = &workerID
	}
	tasks, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return taskengine.VisibleToday(tasks, actor, today, category), nil
}

func (s *taskService) Update(ctx context.Context, actor authz.Actor, id int64, patch models.TaskPatch) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, taskengine.ErrForbidden
	}
	existing, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		existing.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		existing.Description = *patch.Description
	}
	if patch.Category != nil {
		existing.Category = *patch.Category
	}
	if patch.ClearWorker {
		existing.WorkerID = nil
	} else if patch.WorkerID != nil {
		if err := s.checkWorker(ctx, actor, patch.WorkerID); err != nil {
			return nil, err
		}
		worker := *patch.WorkerID
		existing.WorkerID = &worker
	}
	if patch.RequiresPhoto != nil {
		existing.RequiresPhoto = *patch.RequiresPhoto
	}
	if patch.ExamplePhotoURL != nil {
		existing.ExamplePhotoURL = *patch.ExamplePhotoURL
	}
	if patch.WeekDays != nil {
		existing.WeekDays = patch.WeekDays.Normalized()
	}
	if patch.ClearMonthDay {
		existing.MonthDay = nil
	} else if patch.MonthDay != nil {
		d := *patch.MonthDay
		existing.MonthDay = &d
	}
	if patch.IsRecurring != nil {
		existing.IsRecurring = *patch.IsRecurring
	}
	if patch.Price != nil {
		existing.Price = *patch.Price
	}
	if err := validateTask(existing); err != nil {
		return nil, err
	}

	existing.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *taskService) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if !actor.IsAdmin() {
		return taskengine.ErrForbidden
	}
	task, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.releasePhotos(*task, task.PhotoRefs())
	return nil
}

func (s *taskService) AddPhoto(ctx context.Context, actor authz.Actor, id int64, ref string) (*models.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("photo reference is required: %w", taskengine.ErrInvalidTask)
	}
	return s.repo.UpdatePhotos(ctx, id, func(cur models.Task) ([]string, error) {
		if err := s.checkPhotoAccess(cur, actor); err != nil {
			return nil, err
		}
		if !taskengine.OwnsProof(cur, ref) {
			return nil, fmt.Errorf("%q must be under %s: %w", ref, taskengine.ProofDir(cur), taskengine.ErrForeignPhoto)
		}
		// the legacy photo_url stays part of the list instead of being overwritten
		refs := cur.PhotoRefs()
		if len(refs) >= models.MaxTaskPhotos {
			return nil, taskengine.ErrTooManyPhotos
		}
		return append(refs, ref), nil
	})
}

func (s *taskService) RemovePhoto(ctx context.Context, actor authz.Actor, id int64, index int) (*models.Task, error) {
	var removed string
	task, err := s.repo.UpdatePhotos(ctx, id, func(cur models.Task) ([]string, error) {
		if err := s.checkPhotoAccess(cur, actor); err != nil {
			return nil, err
		}
		refs := cur.PhotoRefs()
		if index < 0 || index >= len(refs) {
			return nil, fmt.Errorf("photo %d: %w", index, taskengine.ErrNotFound)
		}
		removed = refs[index]
		return append(refs[:index:index], refs[index+1:]...), nil
	})
	if err != nil {
		return nil, err
	}
	s.releasePhotos(*task, []string{removed})
	return task, nil
}

func (s *taskService) checkPhotoAccess(t models.Task, actor authz.Actor) error {
	if t.CompanyID != actor.CompanyID {
		return fmt.Errorf("task %d: %w", t.ID, taskengine.ErrNotFound)
	}
	if !taskengine.CanComplete(t, actor) {
		return taskengine.ErrForbidden
	}
	return nil
}

func (s *taskService) Complete(ctx context.Context, actor authz.Actor, id int64) (*models.Task, error) {
	out, err := s.repo.Transition(ctx, id, func(cur models.Task) (taskengine.Outcome, error) {
		if cur.CompanyID != actor.CompanyID {
			return taskengine.Outcome{}, fmt.Errorf("task %d: %w", id, taskengine.ErrNotFound)
		}
		return taskengine.Complete(cur, actor)
	})
	if err != nil {
		return nil, err
	}
	if !out.Changed {
		metrics.TaskTransitionNoops.WithLabelValues("complete").Inc()
		log.Printf("[task][complete][noop] id=%d already completed", id)
		return &out.Task, nil
	}

	metrics.TaskTransitions.WithLabelValues("complete").Inc()
	metrics.RecordBonus(out.BalanceDelta)
	log.Printf("[task][complete][ok] id=%d by=%d credited=%d", id, actor.UserID, out.BalanceDelta)

	notifySafely(ctx, s.notifier, s.completionEvent(ctx, actor, out))
	return &out.Task, nil
}

func (s *taskService) Uncomplete(ctx context.Context, actor authz.Actor, id int64) (*models.Task, error) {
	out, err := s.repo.Transition(ctx, id, func(cur models.Task) (taskengine.Outcome, error) {
		if cur.CompanyID != actor.CompanyID {
			return taskengine.Outcome{}, fmt.Errorf("task %d: %w", id, taskengine.ErrNotFound)
		}
		return taskengine.Uncomplete(cur, actor)
	})
	if err != nil {
		return nil, err
	}
	if !out.Changed {
		metrics.TaskTransitionNoops.WithLabelValues("uncomplete").Inc()
		log.Printf("[task][uncomplete][noop] id=%d not completed", id)
		return &out.Task, nil
	}

	metrics.TaskTransitions.WithLabelValues("uncomplete").Inc()
	metrics.RecordBonus(out.BalanceDelta)
	log.Printf("[task][uncomplete][ok] id=%d by=%d debited=%d", id, actor.UserID, -out.BalanceDelta)
	return &out.Task, nil
}

func (s *taskService) completionEvent(ctx context.Context, actor authz.Actor, out taskengine.Outcome) CompletionEvent {
	t := out.Task
	ev := CompletionEvent{
		ID:          uuid.NewString(),
		TaskID:      t.ID,
		CompanyID:   t.CompanyID,
		TaskTitle:   t.Title,
		PhotoURLs:   t.PhotoRefs(),
		Price:       t.Price,
		Credited:    out.BalanceDelta,
		CompletedBy: actor.UserID,
		CompletedAt: s.now(),
	}
	nameOf := actor.UserID
	if t.WorkerID != nil {
		nameOf = *t.WorkerID
	}
	ev.WorkerName = fmt.Sprintf("#%d", nameOf)
	if s.users != nil {
		if u, err := s.users.GetByID(ctx, nameOf); err == nil {
			ev.WorkerName = u.Name
		} else {
			log.Printf("[task][complete][warn] worker %d lookup for notification: %v", nameOf, err)
		}
	}
	return ev
}

// releasePhotos hands photo refs to the file remover, confined to the task's
// proof directory. A file that cannot be removed is logged; the database state is already final.
func (s *taskService) releasePhotos(t models.Task, refs []string) {
	if s.files == nil {
		return
	}
	dir := taskengine.ProofDir(t)
	for _, ref := range refs {
		if err := s.files.Remove(dir, ref); err != nil {
			metrics.PhotoDeleteFailures.Inc()
			log.Printf("[task][photos][warn] task=%d remove %q: %v", t.ID, ref, err)
		}
	}
}
