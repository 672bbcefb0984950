package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	availabilityerrors "telehealth/internal/availability/errors"
	"telehealth/pkg/config"
	mongotx "telehealth/pkg/db/mongo"
	"telehealth/pkg/model"
)

const (
	CollectionName = "Availability"
)

type mongoAvailabilityRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type AvailabilityRepository interface {
	Upsert(ctx context.Context, w *model.Availability) error
	FindByID(ctx context.Context, id string) (*model.Availability, error)
	FindByTherapist(ctx context.Context, therapistID int64) ([]*model.Availability, error)
	FindByTherapistAndDay(ctx context.Context, therapistID int64, dayOfWeek string) ([]*model.Availability, error)
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoAvailabilityRepository(cfg *config.Config) AvailabilityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAvailabilityRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout leaves a SessionContext untouched so calls made inside a
// transaction keep their session.
func (r *mongoAvailabilityRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Upsert writes the therapist's window for w.DayOfWeek, replacing the times of
// an existing window in place. w receives the stored document, including the
// id of the window it replaced.
func (r *mongoAvailabilityRepository) Upsert(ctx context.Context, w *model.Availability) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	filter := bson.M{
		"therapist_id": w.TherapistID,
		"day_of_week":  w.DayOfWeek,
	}
	update := bson.M{
		"$set": bson.M{
			"start_time": w.StartTime,
			"end_time":   w.EndTime,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored model.Availability
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		// Two upserts raced on an empty (therapist, day); the loser now finds
		// the winner's document and updates it.
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %d/%s", availabilityerrors.ErrDuplicate, w.TherapistID, w.DayOfWeek)
		}
		return fmt.Errorf("failed to upsert availability: %w", err)
	}

	*w = stored
	return nil
}

func (r *mongoAvailabilityRepository) FindByID(ctx context.Context, id string) (*model.Availability, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, id)
	}

	var w model.Availability
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&w)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", availabilityerrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find availability: %w", err)
	}

	return &w, nil
}

func (r *mongoAvailabilityRepository) FindByTherapist(ctx context.Context, therapistID int64) ([]*model.Availability, error) {
	return r.find(ctx, bson.M{"therapist_id": therapistID})
}

// FindByTherapistAndDay expects dayOfWeek in its stored, capitalized form.
func (r *mongoAvailabilityRepository) FindByTherapistAndDay(ctx context.Context, therapistID int64, dayOfWeek string) ([]*model.Availability, error) {
	return r.find(ctx, bson.M{
		"therapist_id": therapistID,
		"day_of_week":  dayOfWeek,
	})
}

func (r *mongoAvailabilityRepository) find(ctx context.Context, filter bson.M) ([]*model.Availability, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer cursor.Close(ctx)

	windows := []*model.Availability{}
	if err = cursor.All(ctx, &windows); err != nil {
		return nil, fmt.Errorf("failed to decode availability: %w", err)
	}
	return windows, nil
}

func (r *mongoAvailabilityRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete availability: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", availabilityerrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoAvailabilityRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
