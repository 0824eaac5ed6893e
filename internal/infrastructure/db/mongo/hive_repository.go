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

const collectionHives = "hives"

type HiveRepository struct {
	col *mongo.Collection
}

var _ ports.HiveRepository = (*HiveRepository)(nil)

func NewHiveRepository(db *mongo.Database) *HiveRepository {
	return &HiveRepository{col: db.Collection(collectionHives)}
}

// Create inserts a new hive document.
func (r *HiveRepository) Create(ctx context.Context, h *domain.Hive) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, h)
	return err
}

// FindByID retrieves a hive by its id.
func (r *HiveRepository) FindByID(ctx context.Context, id string) (*domain.Hive, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var h domain.Hive
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&h)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrHiveNotFound
		}
		return nil, err
	}
	return &h, nil
}

// List returns every hive ordered by name.
func (r *HiveRepository) List(ctx context.Context) ([]domain.Hive, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	hives := []domain.Hive{}
	if err := cursor.All(ctx, &hives); err != nil {
		return nil, err
	}
	return hives, nil
}

// UpdateLastReading stores r as the hive's latest reading and sets its status.
func (r *HiveRepository) UpdateLastReading(ctx context.Context, id string, reading domain.Reading, status domain.HiveStatus) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"last_reading": reading, "status": string(status)},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrHiveNotFound
	}
	return nil
}

func (r *HiveRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}})
	return err
}
