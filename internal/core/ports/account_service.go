package ports

import (
	"context"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

// AccountService issues bearer tokens for the backend's auth endpoints.
type AccountService interface {
	Register(ctx context.Context, name, email, password string) (*domain.AuthResult, error)
	Login(ctx context.Context, email, password string) (*domain.AuthResult, error)
	DemoLogin(ctx context.Context) (*domain.AuthResult, error)
}
