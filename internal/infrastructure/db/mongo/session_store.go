package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

const collectionSessionState = "dashboard_session"

// SessionStore keeps the session keys as one document per key, scoped by
// installation so several gateways can share a database.
type SessionStore struct {
	col   *mongo.Collection
	scope string
}

func NewSessionStore(db *mongo.Database, scope string) *SessionStore {
	return &SessionStore{col: db.Collection(collectionSessionState), scope: scope}
}

type sessionEntry struct {
	Scope     string    `bson:"scope"`
	Key       string    `bson:"key"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (s *SessionStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var e sessionEntry
	err := s.col.FindOne(ctx, bson.M{"scope": s.scope, "key": key}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find session key %s: %w", key, err)
	}
	return e.Value, nil
}

func (s *SessionStore) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.col.UpdateOne(ctx,
		bson.M{"scope": s.scope, "key": key},
		bson.M{"$set": bson.M{"value": value, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert session key %s: %w", key, err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, keys ...string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.col.DeleteMany(ctx, bson.M{"scope": s.scope, "key": bson.M{"$in": keys}})
	if err != nil {
		return fmt.Errorf("delete session keys: %w", err)
	}
	return nil
}

func (s *SessionStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "scope", Value: 1}, {Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
