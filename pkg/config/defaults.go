package config

import "time"

const (
	DefaultEnvFile = ".env"

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "telehealth"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRateLimitRPS   = 5.0
	DefaultRateLimitBurst = 20

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultRedisDB = 0

	DefaultCORSAllowedOrigins = "*"

	DefaultSessionDurationMin = 45
	DefaultSessionBreakMin    = 15
	DefaultSlotCollisionMode  = CollisionOverlap
	DefaultCalendarTimeZone   = "Local"
	DefaultSweepSchedule      = "@every 5m"
	DefaultSweepInProcess     = false

	DefaultEventsEnabled         = false
	DefaultSessionEventsTopic    = "session-events"
	DefaultActivityEventsTopic   = "activity-events"
	DefaultEventsDLQTopic        = "telehealth-events-dlq"
	DefaultActivityConsumerGroup = "activity-sink"

	DefaultPaginationLimit = 100
)

const (
	CollisionOverlap = "overlap"
	CollisionStart   = "start"
)
