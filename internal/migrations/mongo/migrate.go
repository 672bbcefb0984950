package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	activityrepo "telehealth/internal/activity/repository"
	availabilityrepo "telehealth/internal/availability/repository"
	"telehealth/internal/migrations/mongo/validators"
	sessionrepo "telehealth/internal/sessions/repository"
	"telehealth/pkg/logger"
)

var (
	AvailabilityIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "therapist_id", Value: 1}, {Key: "day_of_week", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_therapist_day"),
		},
	}

	SessionsIndexes = []mongo.IndexModel{
		{
			// One active session per therapist slot. Declined, cancelled and
			// completed sessions drop out of the index and free the slot.
			Keys: bson.D{
				{Key: "therapist_id", Value: 1},
				{Key: "scheduled_date", Value: 1},
				{Key: "start_time", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_active_slot").
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			Keys:    bson.D{{Key: "therapist_id", Value: 1}, {Key: "scheduled_date", Value: 1}},
			Options: options.Index().SetName("therapist_date"),
		},
		{
			Keys:    bson.D{{Key: "patient_id", Value: 1}, {Key: "scheduled_date", Value: -1}},
			Options: options.Index().SetName("patient_date"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "scheduled_date", Value: 1}},
			Options: options.Index().SetName("status_date"),
		},
	}

	ActivityLogIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_event"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "logged_at", Value: -1}},
			Options: options.Index().SetName("user_logged_at"),
		},
	}
)

type CollectionSpec struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func Collections() []CollectionSpec {
	return []CollectionSpec{
		{Name: availabilityrepo.CollectionName, Indexes: AvailabilityIndexes, Validator: validators.AvailabilityValidator},
		{Name: sessionrepo.CollectionName, Indexes: SessionsIndexes, Validator: validators.SessionValidator},
		{Name: activityrepo.CollectionName, Indexes: ActivityLogIndexes, Validator: validators.ActivityLogValidator},
	}
}

// RunMigration creates the collections with their validators and indexes. It
// is safe to run repeatedly.
func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for _, spec := range Collections() {
		if err := ensureCollection(ctx, db, spec.Name, spec.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", spec.Name, err)
		}
		if err := ensureIndexes(ctx, db, spec.Name, spec.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", spec.Name, err)
		}
	}

	log.Info("All migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
