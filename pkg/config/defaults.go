package config

import "time"

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
	EnvironmentTest        = "test"
)

const (
	DefaultAppEnv = EnvironmentDevelopment

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "tourhub"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultJWTAccessTTL     = 15 * time.Minute
	DefaultJWTRefreshTTL    = 7 * 24 * time.Hour
	DefaultPasswordResetTTL = 1 * time.Hour

	DefaultCurrency        = "USD"
	DefaultPlatformFeeRate = 0.05

	DefaultRedisKeyPrefix = "tourhub:"
	DefaultTenantCacheTTL = 5 * time.Minute

	DefaultBookingEventsTopic = "tourhub.bookings"

	DefaultMetricsNamespace = "tourhub"

	DefaultTracingProtocol    = "grpc"
	DefaultTracingSamplerRate = 1.0

	DefaultPaginationLimit = 20
	MaxPaginationLimit     = 100

	minSecretLength = 32
)
