package config

const (
	EnvAppEnv = "APP_ENV"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"
	EnvLogFile  = "LOG_FILE"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"
	EnvTrustedProxies    = "TRUSTED_PROXIES"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvJWTAccessSecret  = "JWT_ACCESS_SECRET"
	EnvJWTAccessTTL     = "JWT_ACCESS_TTL"
	EnvJWTRefreshSecret = "JWT_REFRESH_SECRET"
	EnvJWTRefreshTTL    = "JWT_REFRESH_TTL"
	EnvPasswordResetTTL = "PASSWORD_RESET_TTL"

	EnvCookieDomain = "COOKIE_DOMAIN"
	EnvCookieSecure = "COOKIE_SECURE"

	EnvStripeSecretKey     = "STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "STRIPE_WEBHOOK_SECRET"
	EnvDefaultCurrency     = "DEFAULT_CURRENCY"
	EnvPlatformFeeRate     = "PLATFORM_FEE_RATE"

	EnvRedisAddr      = "REDIS_ADDR"
	EnvRedisPassword  = "REDIS_PASSWORD"
	EnvRedisDB        = "REDIS_DB"
	EnvRedisKeyPrefix = "REDIS_KEY_PREFIX"
	EnvTenantCacheTTL = "TENANT_CACHE_TTL"

	EnvBookingEventsTopic = "BOOKING_EVENTS_TOPIC"

	EnvMetricsNamespace = "METRICS_NAMESPACE"

	EnvTracingEnabled     = "TRACING_ENABLED"
	EnvTracingEndpoint    = "TRACING_ENDPOINT"
	EnvTracingProtocol    = "TRACING_PROTOCOL"
	EnvTracingSamplerRate = "TRACING_SAMPLER_RATE"
	EnvTracingInsecure    = "TRACING_INSECURE"
)
