package ports

import (
	"context"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

// HiveRepository persists hives and their latest reading.
type HiveRepository interface {
	Create(ctx context.Context, h *domain.Hive) error
	FindByID(ctx context.Context, id string) (*domain.Hive, error)
	List(ctx context.Context) ([]domain.Hive, error)
	UpdateLastReading(ctx context.Context, id string, r domain.Reading, status domain.HiveStatus) error
}

// ReadingRepository stores the reading history of every hive.
type ReadingRepository interface {
	Insert(ctx context.Context, r *domain.Reading) error
	// ListByHive returns the newest readings first, at most limit of them.
	ListByHive(ctx context.Context, hiveID string, limit int) ([]domain.Reading, error)
}

// AlertRepository stores alerts raised from readings.
type AlertRepository interface {
	InsertMany(ctx context.Context, alerts []domain.Alert) error
	List(ctx context.Context, filter AlertFilter) ([]domain.Alert, error)
	Acknowledge(ctx context.Context, id string) (*domain.Alert, error)
}
