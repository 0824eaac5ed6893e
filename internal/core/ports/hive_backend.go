package ports

import (
	"context"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

// AlertFilter narrows an alert listing. Empty fields are not applied.
type AlertFilter struct {
	HiveID   string
	OpenOnly bool
}

// HiveBackend is the read side of the backend used by the dashboard. Every
// call carries the bearer token of the current session.
type HiveBackend interface {
	ListHives(ctx context.Context, token string) ([]domain.Hive, error)
	GetHive(ctx context.Context, token, id string) (*domain.Hive, error)
	ListReadings(ctx context.Context, token, hiveID string, limit int) ([]domain.Reading, error)
	ListAlerts(ctx context.Context, token string, filter AlertFilter) ([]domain.Alert, error)
	AcknowledgeAlert(ctx context.Context, token, id string) (*domain.Alert, error)
}
