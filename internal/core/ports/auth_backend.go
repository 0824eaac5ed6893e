package ports

import (
	"context"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

// AuthBackend verifies credentials and creates accounts on behalf of the
// dashboard. Failures are returned as *domain.AuthError.
type AuthBackend interface {
	Login(ctx context.Context, email, password string) (*domain.AuthResult, error)
	Register(ctx context.Context, name, email, password string) (*domain.AuthResult, error)
}

// DemoIssuer hands out demo identities, either synthesised locally or obtained
// from the backend's demo-login endpoint.
type DemoIssuer interface {
	DemoLogin(ctx context.Context) (*domain.AuthResult, error)
}
