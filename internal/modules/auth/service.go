// README: Admin sign-in and bootstrap.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("wrong username or password")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAdminExists        = errors.New("admin already exists")
	ErrBadRequest         = errors.New("bad request")
)

type Repository interface {
	FindByPhone(ctx context.Context, phone string) (*Admin, error)
	Create(ctx context.Context, a *Admin) error
}

// Issuer signs session tokens.
type Issuer interface {
	Issue(subject, role string) (string, time.Time, error)
}

type Service struct {
	store    Repository
	issuer   Issuer
	log      *zap.Logger
	hashCost int
}

func NewService(store Repository, issuer Issuer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, issuer: issuer, log: log, hashCost: bcrypt.DefaultCost}
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      Role      `json:"admin_role"`
	Menus     []Menu    `json:"menus"`
}

// SignIn checks the phone/password pair and issues a session token.
func (s *Service) SignIn(ctx context.Context, phone, password string) (*Session, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	admin, err := s.store.FindByPhone(ctx, phone)
	if errors.Is(err, ErrAdminNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.log.Info("admin sign-in rejected", zap.String("admin_id", string(admin.ID)))
		return nil, ErrInvalidCredentials
	}

	role := ResolveRole(string(admin.Role))
	token, exp, err := s.issuer.Issue(string(admin.ID), string(role))
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, Role: role, Menus: Menus(role)}, nil
}

// CreateAdmin stores a new admin account with a bcrypt-hashed password.
func (s *Service) CreateAdmin(ctx context.Context, phone, password string, role Role) (*Admin, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone required", ErrBadRequest)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrBadRequest)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role must be admin or staff", ErrBadRequest)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, err
	}
	a := &Admin{Phone: phone, PasswordHash: string(hash), Role: role}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("admin created", zap.String("admin_id", string(a.ID)), zap.String("role", string(role)))
	return a, nil
}
