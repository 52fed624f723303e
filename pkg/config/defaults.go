package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "fleetops"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Hold policy. A hold soft-reserves a vehicle window during checkout and
	// is purged by the cleanup job once ExpiresAt passes.
	DefaultDefaultHoldTTL = 15 * time.Minute
	DefaultMinHoldTTL     = 1 * time.Minute
	DefaultMaxHoldTTL     = 2 * time.Hour

	DefaultCleanupInterval = 1 * time.Minute

	// Advisory slot locks auto-expire so a crashed request cannot wedge a
	// vehicle/date slot.
	DefaultSlotLockTTL = 10 * time.Second

	DefaultPaginationLimit = 100
)
