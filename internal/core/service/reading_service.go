package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/beesense/hive-dashboard/internal/core/domain"
	"github.com/beesense/hive-dashboard/internal/core/ports"
	"github.com/beesense/hive-dashboard/internal/pkg/metrics"
)

// DedupChecker abstracts the idempotency store (Redis or in-process LRU).
type DedupChecker interface {
	IsDuplicate(ctx context.Context, hiveID string, ts time.Time) (bool, error)
	Mark(ctx context.Context, hiveID string, ts time.Time) error
}

type readingService struct {
	hives    ports.HiveRepository
	readings ports.ReadingRepository
	alerts   ports.AlertRepository
	dedup    DedupChecker
	log      zerolog.Logger
	now      func() time.Time
}

// NewReadingService returns a ReadingService implementation.
func NewReadingService(
	hives ports.HiveRepository,
	readings ports.ReadingRepository,
	alerts ports.AlertRepository,
	dedup DedupChecker,
	log zerolog.Logger,
) ports.ReadingService {
	return &readingService{
		hives:    hives,
		readings: readings,
		alerts:   alerts,
		dedup:    dedup,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Process deduplicates, stores and evaluates a single reading.
func (s *readingService) Process(ctx context.Context, in ports.ReadingInput) error {
	start := time.Now()

	// 1. Idempotency check; duplicates are skipped.
	isDup, err := s.dedup.IsDuplicate(ctx, in.HiveID, in.RecordedAt)
	if err != nil {
		s.log.Warn().Err(err).Str("hive_id", in.HiveID).Msg("dedup check failed, processing anyway")
	} else if isDup {
		metrics.ReadingsDedupTotal.WithLabelValues("hit").Inc()
		s.log.Debug().Str("hive_id", in.HiveID).Time("recorded_at", in.RecordedAt).Msg("duplicate reading skipped")
		return nil
	}
	metrics.ReadingsDedupTotal.WithLabelValues("miss").Inc()

	// 2. The hive must exist.
	hive, err := s.hives.FindByID(ctx, in.HiveID)
	if err != nil {
		metrics.ReadingsErrorsTotal.WithLabelValues("hive_not_found").Inc()
		return fmt.Errorf("process reading: %w", err)
	}

	reading := domain.Reading{
		HiveID:      in.HiveID,
		Temperature: in.Temperature,
		Humidity:    in.Humidity,
		Battery:     in.Battery,
		RecordedAt:  in.RecordedAt.UTC(),
	}
	if err := s.readings.Insert(ctx, &reading); err != nil {
		metrics.ReadingsErrorsTotal.WithLabelValues("insert_failed").Inc()
		return fmt.Errorf("process reading: insert: %w", err)
	}
	if markErr := s.dedup.Mark(ctx, in.HiveID, in.RecordedAt); markErr != nil {
		s.log.Warn().Err(markErr).Str("hive_id", in.HiveID).Msg("failed to set dedup key")
	}

	// 3. Raise alerts for out-of-range values.
	alerts := reading.Evaluate()
	for i := range alerts {
		alerts[i].ID = uuid.NewString()
		alerts[i].CreatedAt = s.now()
	}
	if len(alerts) > 0 {
		if err := s.alerts.InsertMany(ctx, alerts); err != nil {
			metrics.ReadingsErrorsTotal.WithLabelValues("alert_failed").Inc()
			return fmt.Errorf("process reading: alerts: %w", err)
		}
		for _, a := range alerts {
			metrics.AlertsRaisedTotal.WithLabelValues(string(a.Kind), string(a.Severity)).Inc()
		}
	}

	// 4. Older readings arriving late do not overwrite the hive's latest state.
	if hive.LastReading == nil || !reading.RecordedAt.Before(hive.LastReading.RecordedAt) {
		status := domain.StatusFromAlerts(alerts)
		if err := s.hives.UpdateLastReading(ctx, hive.ID, reading, status); err != nil {
			metrics.ReadingsErrorsTotal.WithLabelValues("update_failed").Inc()
			return fmt.Errorf("process reading: update hive: %w", err)
		}
	}

	metrics.ReadingsProcessedTotal.Inc()
	metrics.ReadingProcessingDuration.Observe(time.Since(start).Seconds())
	s.log.Info().
		Str("hive_id", in.HiveID).
		Int("alerts", len(alerts)).
		Msg("reading processed")

	return nil
}
