package services

import (
	"context"
	"errors"
	"testing"

	"taskdesk/internal/models"
	"taskdesk/internal/taskengine"
)

func seedTask(t *testing.T, s *fakeStore, task models.Task) int64 {
	t.Helper()
	if err := s.taskRepo().Store(context.Background(), &task); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task.ID
}

func TestRunDaily_ReopensOnlyCompletedRecurring(t *testing.T) {
	store := newFakeStore()
	files := &fakeFiles{fail: map[string]error{}}

	done := models.Task{Title: "done", IsRecurring: true, IsCompleted: true, Price: 100, ExamplePhotoURL: "/examples/x.jpg"}
	done.SetPhotos([]string{"/uploads/1.jpg", "/uploads/2.jpg"})
	doneID := seedTask(t, store, done)
	openID := seedTask(t, store, models.Task{Title: "open", IsRecurring: true})
	oneOffID := seedTask(t, store, models.Task{Title: "one-off", IsCompleted: true, PhotoURLs: []string{"/uploads/3.jpg"}})

	report, err := NewResetService(store.taskRepo(), files).RunDaily(context.Background())
	if err != nil {
		t.Fatalf("RunDaily: %v", err)
	}
	if report.Reset != 1 || len(report.Released) != 2 || report.FailedDeletes != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	got := store.task(doneID)
	if got.IsCompleted || len(got.PhotoURLs) != 0 || got.PhotoURL != "" {
		t.Fatalf("task not reset: %+v", got)
	}
	if got.Price != 100 || got.ExamplePhotoURL != "/examples/x.jpg" || got.Title != "done" {
		t.Fatalf("reset must keep task settings: %+v", got)
	}
	if store.task(openID).IsCompleted {
		t.Fatal("open task changed")
	}
	if one := store.task(oneOffID); !one.IsCompleted || len(one.PhotoURLs) != 1 {
		t.Fatalf("one-off task must be left alone: %+v", one)
	}
	if len(files.removed) != 2 {
		t.Fatalf("expected 2 removed files, got %v", files.removed)
	}
	for _, dir := range files.dirs {
		if want := taskengine.ProofDir(got); dir != want {
			t.Fatalf("removal scoped to %q, want %q", dir, want)
		}
	}
}

func TestRunDaily_FileErrorsAreNotFatal(t *testing.T) {
	store := newFakeStore()
	files := &fakeFiles{fail: map[string]error{"/uploads/gone.jpg": errors.New("no such file")}}

	task := models.Task{Title: "t", IsRecurring: true, IsCompleted: true}
	task.SetPhotos([]string{"/uploads/gone.jpg", "/uploads/ok.jpg"})
	id := seedTask(t, store, task)

	report, err := NewResetService(store.taskRepo(), files).RunDaily(context.Background())
	if err != nil {
		t.Fatalf("RunDaily: %v", err)
	}
	if report.FailedDeletes != 1 || report.Reset != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if store.task(id).IsCompleted {
		t.Fatal("task must be reset even if a file could not be removed")
	}
}

func TestRunDaily_KeepsBalances(t *testing.T) {
	store := newFakeStore()
	worker := &models.User{CompanyID: 1, Name: "w", Email: "w@example.com", RoleID: 10}
	if err := store.userRepo().Create(context.Background(), worker); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	u := store.users[worker.ID]
	u.BonusBalance = 300
	store.users[worker.ID] = u
	seedTask(t, store, models.Task{Title: "t", WorkerID: &worker.ID, IsRecurring: true, IsCompleted: true, Price: 300})

	if _, err := NewResetService(store.taskRepo(), nil).RunDaily(context.Background()); err != nil {
		t.Fatalf("RunDaily: %v", err)
	}
	if b := store.user(worker.ID).BonusBalance; b != 300 {
		t.Fatalf("expected balance 300, got %d", b)
	}
}

func TestRunDaily_ContinuesAfterTaskError(t *testing.T) {
	store := newFakeStore()
	first := seedTask(t, store, models.Task{Title: "a", IsRecurring: true, IsCompleted: true})
	second := seedTask(t, store, models.Task{Title: "b", IsRecurring: true, IsCompleted: true})
	boom := errors.New("deadlock detected")
	store.failReset[first] = boom

	report, err := NewResetService(store.taskRepo(), nil).RunDaily(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error with %v, got %v", boom, err)
	}
	if report.Reset != 1 || store.task(second).IsCompleted {
		t.Fatalf("second task must still be reset: %+v", report)
	}
}

func TestRunDaily_ListError(t *testing.T) {
	store := newFakeStore()
	repo := &listFailRepo{fakeTaskRepo: store.taskRepo(), err: errors.New("db down")}

	if _, err := NewResetService(repo, nil).RunDaily(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type listFailRepo struct {
	*fakeTaskRepo
	err error
}

func (r *listFailRepo) ListResettable(context.Context) ([]models.Task, error) {
	return nil, r.err
}
