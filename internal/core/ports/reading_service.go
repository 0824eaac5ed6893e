package ports

import (
	"context"
	"time"
)

// ReadingInput is the DTO passed from the transport layer to ReadingService.
type ReadingInput struct {
	HiveID      string
	Temperature float64
	Humidity    float64
	Battery     float64
	RecordedAt  time.Time
}

// ReadingService processes incoming sensor readings.
type ReadingService interface {
	Process(ctx context.Context, in ReadingInput) error
}
