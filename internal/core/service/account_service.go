package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/beesense/hive-dashboard/internal/core/domain"
	"github.com/beesense/hive-dashboard/internal/core/ports"
)

// AccountService implements the backend's registration, login and
// demo-login.
type AccountService struct {
	repo     ports.AccountRepository
	secret   []byte
	tokenTTL time.Duration
	demoTTL  time.Duration
	clock    clockwork.Clock
}

var _ ports.AccountService = (*AccountService)(nil)

func NewAccountService(repo ports.AccountRepository, jwtSecret string, tokenTTL, demoTTL time.Duration) *AccountService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if demoTTL <= 0 {
		demoTTL = domain.DefaultDemoTTL
	}
	return &AccountService{
		repo:     repo,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
		demoTTL:  demoTTL,
		clock:    clockwork.NewRealClock(),
	}
}

// Register creates an observer account. Admins are only created through
// EnsureAdmin.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*domain.AuthResult, error) {
	account, err := s.create(ctx, name, email, password, domain.RoleObserver)
	if err != nil {
		return nil, err
	}
	return s.issue(account)
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(account)
}

// DemoLogin returns an ephemeral demo identity. Nothing is stored.
func (s *AccountService) DemoLogin(_ context.Context) (*domain.AuthResult, error) {
	id := newDemoIdentity()
	token, err := signToken(s.secret, id, s.clock.Now(), s.demoTTL)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{User: id, Token: token}, nil
}

// EnsureAdmin creates the bootstrap admin account unless the email is taken.
func (s *AccountService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	_, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return err
	}
	_, err = s.create(ctx, name, email, password, domain.RoleAdmin)
	if errors.Is(err, domain.ErrAccountExists) {
		return nil
	}
	return err
}

func (s *AccountService) create(ctx context.Context, name, email, password string, role domain.Role) (*domain.Account, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	return s.repo.Create(ctx, &domain.Account{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (s *AccountService) issue(account *domain.Account) (*domain.AuthResult, error) {
	id := account.Identity()
	token, err := signToken(s.secret, id, s.clock.Now(), s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{User: id, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
