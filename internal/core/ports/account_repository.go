package ports

import (
	"context"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

// AccountRepository defines persistence for backend user accounts.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
}
