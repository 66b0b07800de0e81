package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskdesk/internal/authz"
	"taskdesk/internal/models"
	"taskdesk/internal/taskengine"
)

type fakeEmail struct {
	mu        sync.Mutex
	welcomed  []string
	completed [][]string
	err       error
}

func (e *fakeEmail) SendWelcomeEmail(email, _, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.welcomed = append(e.welcomed, email)
	return e.err
}

func (e *fakeEmail) SendTaskCompletedEmail(to []string, _ CompletionEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed = append(e.completed, to)
	return e.err
}

type userFixture struct {
	store *fakeStore
	email *fakeEmail
	svc   UserService
	admin authz.Actor
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{store: newFakeStore(), email: &fakeEmail{}}
	f.svc = NewUserService(f.store.userRepo(), &fakeCompanyRepo{f.store}, f.email, NewAuthService([]byte("test-secret"), time.Minute))

	_, admin, err := f.svc.Register(context.Background(), models.RegisterRequest{
		CompanyName: "Кофейня",
		AdminName:   "Aigerim",
		Email:       "admin@example.com",
		Password:    "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.admin = authz.Actor{UserID: admin.ID, RoleID: admin.RoleID, CompanyID: admin.CompanyID}
	return f
}

func (f *userFixture) createWorker(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "Worker", Email: email}
	if err := f.svc.CreateUser(context.Background(), f.admin, u, "pass1234"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestRegister_CreatesAdmin(t *testing.T) {
	f := newUserFixture(t)

	if f.admin.RoleID != authz.RoleAdmin || f.admin.CompanyID == 0 {
		t.Fatalf("unexpected admin actor: %+v", f.admin)
	}
	if len(f.email.welcomed) != 1 || f.email.welcomed[0] != "admin@example.com" {
		t.Fatalf("expected welcome mail, got %v", f.email.welcomed)
	}

	_, _, err := f.svc.Register(context.Background(), models.RegisterRequest{AdminName: "x", Email: "x@example.com", Password: "p"})
	if !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser for empty company, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	u, err := f.svc.Authenticate(ctx, " admin@example.com ", "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.ID != f.admin.UserID {
		t.Fatalf("expected user %d, got %d", f.admin.UserID, u.ID)
	}
	if _, err := f.svc.Authenticate(ctx, "admin@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "nobody@example.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestCreateUser_Defaults(t *testing.T) {
	f := newUserFixture(t)
	u := f.createWorker(t, "w@example.com")

	if u.RoleID != authz.RoleWorker || u.CompanyID != f.admin.CompanyID || u.BonusBalance != 0 {
		t.Fatalf("unexpected defaults: %+v", u)
	}
	if u.PasswordHash == "" || u.PasswordHash == "pass1234" {
		t.Fatal("password must be stored hashed")
	}

	worker := authz.Actor{UserID: u.ID, RoleID: u.RoleID, CompanyID: u.CompanyID}
	err := f.svc.CreateUser(context.Background(), worker, &models.User{Name: "n", Email: "n@example.com"}, "p")
	if !errors.Is(err, taskengine.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for worker, got %v", err)
	}
	err = f.svc.CreateUser(context.Background(), f.admin, &models.User{Name: "n", Email: "n@example.com", RoleID: 99}, "p")
	if !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser for unknown role, got %v", err)
	}
}

func TestCreateUser_WelcomeFailureIgnored(t *testing.T) {
	f := newUserFixture(t)
	f.email.err = errors.New("smtp down")

	u := &models.User{Name: "Worker", Email: "w@example.com"}
	if err := f.svc.CreateUser(context.Background(), f.admin, u, "pass1234"); err != nil {
		t.Fatalf("expected success despite mail error, got %v", err)
	}
}

func TestResetBalance(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	w := f.createWorker(t, "w@example.com")
	worker := authz.Actor{UserID: w.ID, RoleID: w.RoleID, CompanyID: w.CompanyID}

	f.store.mu.Lock()
	u := f.store.users[w.ID]
	u.BonusBalance = 250
	f.store.users[w.ID] = u
	f.store.entries = append(f.store.entries, models.BonusEntry{UserID: w.ID, Amount: 250, Reason: models.BonusCompletion})
	f.store.mu.Unlock()

	if _, err := f.svc.ResetBalance(ctx, worker, w.ID); !errors.Is(err, taskengine.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for worker, got %v", err)
	}
	if b := f.store.user(w.ID).BonusBalance; b != 250 {
		t.Fatalf("forbidden reset changed balance to %d", b)
	}

	got, err := f.svc.ResetBalance(ctx, f.admin, w.ID)
	if err != nil {
		t.Fatalf("ResetBalance: %v", err)
	}
	if got.BonusBalance != 0 || f.store.user(w.ID).BonusBalance != 0 {
		t.Fatal("expected balance 0")
	}
	if sum := f.store.balanceSum(w.ID); sum != 0 {
		t.Fatalf("ledger sum = %d, want 0", sum)
	}

	// second reset is a no-op
	if _, err := f.svc.ResetBalance(ctx, f.admin, w.ID); err != nil {
		t.Fatalf("second ResetBalance: %v", err)
	}
	if _, err := f.svc.ResetBalance(ctx, f.admin, 999); !errors.Is(err, taskengine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUser_Access(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	a := f.createWorker(t, "a@example.com")
	b := f.createWorker(t, "b@example.com")
	workerA := authz.Actor{UserID: a.ID, RoleID: a.RoleID, CompanyID: a.CompanyID}

	if _, err := f.svc.GetUser(ctx, workerA, a.ID); err != nil {
		t.Fatalf("worker reading self: %v", err)
	}
	if _, err := f.svc.GetUser(ctx, workerA, b.ID); !errors.Is(err, taskengine.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	stranger := authz.Actor{UserID: 500, RoleID: authz.RoleAdmin, CompanyID: f.admin.CompanyID + 1}
	if _, err := f.svc.GetUser(ctx, stranger, a.ID); !errors.Is(err, taskengine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across companies, got %v", err)
	}
	if _, err := f.svc.ListUsers(ctx, workerA); !errors.Is(err, taskengine.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for ListUsers, got %v", err)
	}
	list, err := f.svc.ListUsers(ctx, f.admin)
	if err != nil || len(list) != 3 {
		t.Fatalf("expected 3 users, got %d (err %v)", len(list), err)
	}
}

func TestUpdateUser(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	w := f.createWorker(t, "w@example.com")
	worker := authz.Actor{UserID: w.ID, RoleID: w.RoleID, CompanyID: w.CompanyID}

	name := "Dauren"
	got, err := f.svc.UpdateUser(ctx, worker, w.ID, models.UserPatch{Name: &name})
	if err != nil {
		t.Fatalf("UpdateUser self: %v", err)
	}
	if got.Name != "Dauren" {
		t.Fatalf("name not updated: %+v", got)
	}

	role := authz.RoleAdmin
	if _, err := f.svc.UpdateUser(ctx, worker, w.ID, models.UserPatch{RoleID: &role}); !errors.Is(err, taskengine.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for self promotion, got %v", err)
	}
	if _, err := f.svc.UpdateUser(ctx, f.admin, w.ID, models.UserPatch{RoleID: &role}); err != nil {
		t.Fatalf("admin promotion: %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	w := f.createWorker(t, "w@example.com")

	if err := f.svc.DeleteUser(ctx, f.admin, f.admin.UserID); !errors.Is(err, taskengine.ErrForbidden) {
		t.Fatalf("expected ErrForbidden deleting self, got %v", err)
	}
	if err := f.svc.DeleteUser(ctx, f.admin, w.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := f.svc.GetUser(ctx, f.admin, w.ID); !errors.Is(err, taskengine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
