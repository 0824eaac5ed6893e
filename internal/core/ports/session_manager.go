package ports

import (
	"context"
	"time"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

// SessionManager is the single authority for who the current user is.
type SessionManager interface {
	Login(ctx context.Context, email, password string) (*domain.Identity, error)
	Register(ctx context.Context, name, email, password string) (*domain.Identity, error)
	EnterDemoMode(ctx context.Context) (*domain.Identity, error)
	Logout(ctx context.Context)
	Current() *domain.Identity
	Token() string
	// DemoExpiresAt reports when the active demo identity expires.
	DemoExpiresAt() (time.Time, bool)
	// Subscribe registers fn for every identity change and returns a func
	// that removes it. fn must not call back into the manager.
	Subscribe(fn func(domain.SessionEvent)) (unsubscribe func())
}
