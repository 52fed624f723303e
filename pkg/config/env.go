package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvCleanupSecret   = "CLEANUP_SECRET"
	EnvCleanupInterval = "CLEANUP_INTERVAL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultHoldTTL = "DEFAULT_HOLD_TTL"
	EnvMinHoldTTL     = "MIN_HOLD_TTL"
	EnvMaxHoldTTL     = "MAX_HOLD_TTL"
	EnvSlotLockTTL    = "SLOT_LOCK_TTL"
	EnvAllowPastDates = "ALLOW_PAST_DATES"
)
