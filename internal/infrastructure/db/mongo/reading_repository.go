package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beesense/hive-dashboard/internal/core/domain"
	"github.com/beesense/hive-dashboard/internal/core/ports"
)

const (
	collectionReadings = "readings"
	maxReadings        = 1000
)

// ReadingRepository implements ports.ReadingRepository using MongoDB.
type ReadingRepository struct {
	col *mongo.Collection
}

var _ ports.ReadingRepository = (*ReadingRepository)(nil)

func NewReadingRepository(db *mongo.Database) *ReadingRepository {
	return &ReadingRepository{col: db.Collection(collectionReadings)}
}

// Insert persists a reading together with the time it was stored.
func (r *ReadingRepository) Insert(ctx context.Context, reading *domain.Reading) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"hive_id":      reading.HiveID,
		"temperature":  reading.Temperature,
		"humidity":     reading.Humidity,
		"battery":      reading.Battery,
		"recorded_at":  reading.RecordedAt.UTC(),
		"processed_at": time.Now().UTC(),
	}
	_, err := r.col.InsertOne(ctx, doc)
	return err
}

func (r *ReadingRepository) ListByHive(ctx context.Context, hiveID string, limit int) ([]domain.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if limit <= 0 || limit > maxReadings {
		limit = maxReadings
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, bson.M{"hive_id": hiveID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	readings := []domain.Reading{}
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *ReadingRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "hive_id", Value: 1}, {Key: "recorded_at", Value: -1}},
	})
	return err
}
