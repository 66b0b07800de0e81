package services

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"taskdesk/internal/authz"
	"taskdesk/internal/models"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService interface {
	HashPassword(plain string) (string, error)
	CheckPassword(hash, plain string) error
	IssueAccessToken(user *models.User) (token string, expiresAt time.Time, err error)
}

type authService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(secret []byte, ttl time.Duration) AuthService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &authService{secret: secret, ttl: ttl, now: time.Now}
}

func (s *authService) HashPassword(plain string) (string, error) {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *authService) CheckPassword(hash, plain string) error {
	if strings.TrimSpace(hash) == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(plain))); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *authService) IssueAccessToken(user *models.User) (string, time.Time, error) {
	exp := s.now().Add(s.ttl)
	claims := &authz.Claims{
		UserID:    user.ID,
		RoleID:    user.RoleID,
		CompanyID: user.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}
