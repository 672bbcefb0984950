package config

const (
	EnvFile = "ENV_FILE"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvRateLimitRPS   = "RATE_LIMIT_RPS"
	EnvRateLimitBurst = "RATE_LIMIT_BURST"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvJWTSecret          = "JWT_SECRET"
	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"

	EnvSessionDurationMin = "SESSION_DURATION_MIN"
	EnvSessionBreakMin    = "SESSION_BREAK_MIN"
	EnvSlotCollisionMode  = "SLOT_COLLISION_MODE"
	EnvCalendarTimeZone   = "CALENDAR_TIME_ZONE"
	EnvSweepSchedule      = "SWEEP_SCHEDULE"
	EnvSweepInProcess     = "SWEEP_IN_PROCESS"

	EnvEventsEnabled         = "EVENTS_ENABLED"
	EnvSessionEventsTopic    = "SESSION_EVENTS_TOPIC"
	EnvActivityEventsTopic   = "ACTIVITY_EVENTS_TOPIC"
	EnvEventsDLQTopic        = "EVENTS_DLQ_TOPIC"
	EnvActivityConsumerGroup = "ACTIVITY_CONSUMER_GROUP"
)
