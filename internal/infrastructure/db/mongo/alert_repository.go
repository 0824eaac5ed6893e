package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beesense/hive-dashboard/internal/core/domain"
	"github.com/beesense/hive-dashboard/internal/core/ports"
)

const (
	collectionAlerts = "alerts"
	maxAlerts        = 500
)

type AlertRepository struct {
	col *mongo.Collection
}

var _ ports.AlertRepository = (*AlertRepository)(nil)

func NewAlertRepository(db *mongo.Database) *AlertRepository {
	return &AlertRepository{col: db.Collection(collectionAlerts)}
}

func (r *AlertRepository) InsertMany(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs := make([]any, len(alerts))
	for i := range alerts {
		docs[i] = alerts[i]
	}
	_, err := r.col.InsertMany(ctx, docs)
	return err
}

// List returns the newest alerts first.
func (r *AlertRepository) List(ctx context.Context, f ports.AlertFilter) ([]domain.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.HiveID != "" {
		filter["hive_id"] = f.HiveID
	}
	if f.OpenOnly {
		filter["acknowledged"] = false
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(maxAlerts)

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	alerts := []domain.Alert{}
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Acknowledge marks the alert as handled and returns its new state.
func (r *AlertRepository) Acknowledge(ctx context.Context, id string) (*domain.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a domain.Alert
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"acknowledged": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "hive_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "acknowledged", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
