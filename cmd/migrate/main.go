package main

import (
	"context"
	"os"
	"time"

	mongomigration "telehealth/internal/migrations/mongo"
	"telehealth/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	cfg := config.Load(JobName)
	cfg.SetMongo()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	cfg.Log.Info("Starting Mongo migration job", "database", cfg.MongoDatabaseName)
	err := mongomigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log)
	cancel()
	cfg.GracefulShutdown()

	if err != nil {
		cfg.Log.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	cfg.Log.Info("Migration completed successfully")
}
