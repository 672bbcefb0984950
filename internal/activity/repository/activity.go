package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"telehealth/pkg/config"
	"telehealth/pkg/model"
)

const (
	CollectionName = "Activity_logs"
)

type ActivityRepository interface {
	// Insert stores entry. It reports false when an entry with the same event
	// id was stored before.
	Insert(ctx context.Context, entry *model.ActivityLog) (bool, error)
}

type mongoActivityRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoActivityRepository(cfg *config.Config) ActivityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoActivityRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoActivityRepository) Insert(ctx context.Context, entry *model.ActivityLog) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now().UTC()
	}
	entry.LoggedAt = entry.LoggedAt.UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert activity log: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid.Hex()
	}
	return true, nil
}
