package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"taskdesk/internal/authz"
	"taskdesk/internal/metrics"
	"taskdesk/internal/models"
	"taskdesk/internal/repositories"
	"taskdesk/internal/taskengine"
)

var ErrInvalidUser = errors.New("invalid user")

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.Company, *models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)

	CreateUser(ctx context.Context, actor authz.Actor, user *models.User, plainPassword string) error
	GetUser(ctx context.Context, actor authz.Actor, id int64) (*models.User, error)
	ListUsers(ctx context.Context, actor authz.Actor) ([]*models.User, error)
	UpdateUser(ctx context.Context, actor authz.Actor, id int64, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, actor authz.Actor, id int64) error

	ResetBalance(ctx context.Context, actor authz.Actor, id int64) (*models.User, error)
}

type userService struct {
	repo         repositories.UserRepository
	companies    repositories.CompanyRepository
	emailService EmailService
	authService  AuthService
}

func NewUserService(repo repositories.UserRepository, companies repositories.CompanyRepository, emailService EmailService, authService AuthService) UserService {
	return &userService{
		repo:         repo,
		companies:    companies,
		emailService: emailService,
		authService:  authService,
	}
}

func (s *userService) Register(ctx context.Context, req models.RegisterRequest) (*models.Company, *models.User, error) {
	company := &models.Company{Name: strings.TrimSpace(req.CompanyName)}
	if company.Name == "" {
		return nil, nil, fmt.Errorf("company name is required: %w", ErrInvalidUser)
	}
	hash, err := s.authService.HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}
	admin := &models.User{
		Name:           strings.TrimSpace(req.AdminName),
		Email:          strings.TrimSpace(req.Email),
		PasswordHash:   hash,
		RoleID:         authz.RoleAdmin,
		NotifyTelegram: true,
	}
	if err := s.companies.CreateWithAdmin(ctx, company, admin); err != nil {
		return nil, nil, err
	}
	s.sendWelcome(admin, company.Name)
	return company, admin, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, taskengine.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.authService.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) CreateUser(ctx context.Context, actor authz.Actor, user *models.User, plainPassword string) error {
	if !actor.IsAdmin() {
		return taskengine.ErrForbidden
	}
	if user.RoleID == 0 {
		user.RoleID = authz.RoleWorker
	}
	if !authz.IsKnownRole(user.RoleID) {
		return fmt.Errorf("unknown role %d: %w", user.RoleID, ErrInvalidUser)
	}
	user.Name = strings.TrimSpace(user.Name)
	user.Email = strings.TrimSpace(user.Email)
	if user.Name == "" || user.Email == "" {
		return fmt.Errorf("name and email are required: %w", ErrInvalidUser)
	}

	hash, err := s.authService.HashPassword(plainPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.CompanyID = actor.CompanyID
	user.BonusBalance = 0
	user.NotifyTelegram = true

	if err := s.repo.Create(ctx, user); err != nil {
		return err
	}
	s.sendWelcome(user, "")
	return nil
}

func (s *userService) sendWelcome(user *models.User, companyName string) {
	if s.emailService == nil {
		return
	}
	if err := s.emailService.SendWelcomeEmail(user.Email, user.Name, companyName); err != nil {
		// warn but do not fail creation
		log.Printf("[user][welcome][warn] failed to send welcome email to %s: %v", user.Email, err)
	}
}

// load returns a user of the actor's company that the actor may see: admins see everyone, workers only themselves.
func (s *userService) load(ctx context.Context, actor authz.Actor, id int64) (*models.User, error) {
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, taskengine.ErrForbidden
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.CompanyID != actor.CompanyID {
		return nil, fmt.Errorf("user %d: %w", id, taskengine.ErrNotFound)
	}
	return u, nil
}

func (s *userService) GetUser(ctx context.Context, actor authz.Actor, id int64) (*models.User, error) {
	return s.load(ctx, actor, id)
}

func (s *userService) ListUsers(ctx context.Context, actor authz.Actor) ([]*models.User, error) {
	if !actor.IsAdmin() {
		return nil, taskengine.ErrForbidden
	}
	return s.repo.ListByCompany(ctx, actor.CompanyID)
}

func (s *userService) UpdateUser(ctx context.Context, actor authz.Actor, id int64, patch models.UserPatch) (*models.User, error) {
	u, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		u.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		u.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.NotifyTelegram != nil {
		u.NotifyTelegram = *patch.NotifyTelegram
	}
	if patch.RoleID != nil {
		if !actor.IsAdmin() {
			return nil, taskengine.ErrForbidden
		}
		if !authz.IsKnownRole(*patch.RoleID) {
			return nil, fmt.Errorf("unknown role %d: %w", *patch.RoleID, ErrInvalidUser)
		}
		u.RoleID = *patch.RoleID
	}
	if u.Name == "" || u.Email == "" {
		return nil, fmt.Errorf("name and email are required: %w", ErrInvalidUser)
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor authz.Actor, id int64) error {
	if !actor.IsAdmin() || actor.UserID == id {
		return taskengine.ErrForbidden
	}
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *userService) ResetBalance(ctx context.Context, actor authz.Actor, id int64) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, taskengine.ErrForbidden
	}
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}
	u, err := s.repo.ResetBalance(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.BalanceResets.Inc()
	log.Printf("[user][reset-balance][ok] id=%d by=%d", id, actor.UserID)
	return u, nil
}
