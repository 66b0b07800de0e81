package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"taskdesk/internal/authz"
	"taskdesk/internal/models"
	"taskdesk/internal/pdf"
	"taskdesk/internal/repositories"
	"taskdesk/internal/services"
	"taskdesk/internal/taskengine"
)

type stubUsers struct {
	services.UserService

	users map[int64]*models.User
}

func (s *stubUsers) GetUser(_ context.Context, actor authz.Actor, id int64) (*models.User, error) {
	u, ok := s.users[id]
	if !ok || u.CompanyID != actor.CompanyID {
		return nil, taskengine.ErrNotFound
	}
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, taskengine.ErrForbidden
	}
	return u, nil
}

func (s *stubUsers) ResetBalance(ctx context.Context, actor authz.Actor, id int64) (*models.User, error) {
	u, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	u.BonusBalance = 0
	return u, nil
}

func (s *stubUsers) Authenticate(_ context.Context, email, password string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email && password == "secret123" {
			return u, nil
		}
	}
	return nil, services.ErrInvalidCredentials
}

type stubLedger struct{}

func (stubLedger) ListByUser(_ context.Context, userID int64) ([]models.BonusEntry, error) {
	return []models.BonusEntry{{UserID: userID, Amount: 50, Reason: models.BonusCompletion}}, nil
}

type stubRenderer struct{ fail bool }

func (r stubRenderer) RenderStatement(w io.Writer, data pdf.StatementData) error {
	if r.fail {
		return errors.New("font missing")
	}
	_, err := io.WriteString(w, "%PDF-1.3 "+data.WorkerName)
	return err
}

var _ repositories.BonusRepository = stubLedger{}

func newStubUsers() *stubUsers {
	return &stubUsers{users: map[int64]*models.User{
		1: {ID: 1, CompanyID: 1, Name: "Админ", Email: "admin@example.com", RoleID: authz.RoleAdmin},
		2: {ID: 2, CompanyID: 1, Name: "Айгуль", Email: "worker@example.com", RoleID: authz.RoleWorker, BonusBalance: 120},
		3: {ID: 3, CompanyID: 1, Name: "Марат", Email: "other@example.com", RoleID: authz.RoleWorker},
	}}
}

func userRouter(h *UserHandler, a *authz.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withActor(a))
	r.POST("/users/:id/reset-balance", h.ResetBalance)
	r.GET("/users/:id/statement", h.Statement)
	return r
}

func TestResetBalance(t *testing.T) {
	users := newStubUsers()
	r := userRouter(NewUserHandler(users, nil), &admin)

	w := send(r, http.MethodPost, "/users/2/reset-balance", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var got models.User
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != 2 || got.BonusBalance != 0 {
		t.Fatalf("unexpected user %+v", got)
	}

	if w := send(r, http.MethodPost, "/users/99/reset-balance", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown user: expected 404, got %d", w.Code)
	}
}

func TestStatement(t *testing.T) {
	users := newStubUsers()
	statements := services.NewStatementService(users, stubLedger{}, nil, stubRenderer{})

	w := send(userRouter(NewUserHandler(users, statements), &worker), http.MethodGet, "/users/2/statement", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "statement-2.pdf") {
		t.Fatalf("Content-Disposition = %q", w.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Fatalf("body is not a PDF: %q", w.Body.String())
	}

	// сотрудник не видит чужую выписку
	if w := send(userRouter(NewUserHandler(users, statements), &worker), http.MethodGet, "/users/3/statement", nil, ""); w.Code != http.StatusForbidden {
		t.Fatalf("colleague: expected 403, got %d", w.Code)
	}
}

func TestStatement_RenderErrorIsJSON(t *testing.T) {
	users := newStubUsers()
	statements := services.NewStatementService(users, stubLedger{}, nil, stubRenderer{fail: true})

	w := send(userRouter(NewUserHandler(users, statements), &admin), http.MethodGet, "/users/2/statement", nil, "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("error must be JSON, got %q", w.Header().Get("Content-Type"))
	}
}

func TestLogin(t *testing.T) {
	users := newStubUsers()
	h := NewAuthHandler(users, services.NewAuthService([]byte("0123456789abcdef0123"), time.Hour))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", h.Login)

	w := send(r, http.MethodPost, "/login", strings.NewReader(`{"email":" worker@example.com ","password":"secret123"}`), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp struct {
		User   models.User `json:"user"`
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.User.ID != 2 || resp.Tokens.AccessToken == "" {
		t.Fatalf("unexpected response %s", w.Body.String())
	}

	w = send(r, http.MethodPost, "/login", strings.NewReader(`{"email":"worker@example.com","password":"nope"}`), "application/json")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", w.Code)
	}
}
