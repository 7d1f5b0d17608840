package config

import (
	"fmt"
	"net/netip"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tourhub/pkg/client"
	"tourhub/pkg/logger"
)

type Config struct {
	AppEnv string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	TrustedProxies    []string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	JWTAccessSecret  string
	JWTAccessTTL     time.Duration
	JWTRefreshSecret string
	JWTRefreshTTL    time.Duration
	PasswordResetTTL time.Duration

	CookieDomain string
	CookieSecure bool

	StripeSecretKey     string
	StripeWebhookSecret string
	DefaultCurrency     string
	PlatformFeeRate     float64

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	TenantCacheTTL time.Duration

	BookingEventsTopic string

	MetricsNamespace string

	TracingEnabled     bool
	TracingEndpoint    string
	TracingProtocol    string
	TracingSamplerRate float64
	TracingInsecure    bool

	ServiceName string

	Log    *logger.Logger
	Client *client.Client
}

// Load reads configuration from the environment (and a .env file when one
// exists), validates it and exits the process on invalid values.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	appEnv := strings.ToLower(getEnvStr(EnvAppEnv, DefaultAppEnv))

	cfg := &Config{
		AppEnv: appEnv,

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		TrustedProxies:    getEnvList(EnvTrustedProxies),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		JWTAccessSecret:  getEnvStr(EnvJWTAccessSecret, ""),
		JWTAccessTTL:     getEnvDuration(EnvJWTAccessTTL, DefaultJWTAccessTTL),
		JWTRefreshSecret: getEnvStr(EnvJWTRefreshSecret, ""),
		JWTRefreshTTL:    getEnvDuration(EnvJWTRefreshTTL, DefaultJWTRefreshTTL),
		PasswordResetTTL: getEnvDuration(EnvPasswordResetTTL, DefaultPasswordResetTTL),

		CookieDomain: getEnvStr(EnvCookieDomain, ""),
		CookieSecure: getEnvBool(EnvCookieSecure, appEnv == EnvironmentProduction),

		StripeSecretKey:     getEnvStr(EnvStripeSecretKey, ""),
		StripeWebhookSecret: getEnvStr(EnvStripeWebhookSecret, ""),
		DefaultCurrency:     strings.ToUpper(getEnvStr(EnvDefaultCurrency, DefaultCurrency)),
		PlatformFeeRate:     getEnvFloat(EnvPlatformFeeRate, DefaultPlatformFeeRate),

		RedisAddr:      getEnvStr(EnvRedisAddr, ""),
		RedisPassword:  getEnvStr(EnvRedisPassword, ""),
		RedisDB:        getEnvNum(EnvRedisDB, 0),
		RedisKeyPrefix: getEnvStr(EnvRedisKeyPrefix, DefaultRedisKeyPrefix),
		TenantCacheTTL: getEnvDuration(EnvTenantCacheTTL, DefaultTenantCacheTTL),

		BookingEventsTopic: getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),

		MetricsNamespace: getEnvStr(EnvMetricsNamespace, DefaultMetricsNamespace),

		TracingEnabled:     getEnvBool(EnvTracingEnabled, false),
		TracingEndpoint:    getEnvStr(EnvTracingEndpoint, ""),
		TracingProtocol:    getEnvStr(EnvTracingProtocol, DefaultTracingProtocol),
		TracingSamplerRate: getEnvFloat(EnvTracingSamplerRate, DefaultTracingSamplerRate),
		TracingInsecure:    getEnvBool(EnvTracingInsecure, true),

		ServiceName: serviceName,

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
			FilePath:  getEnvStr(EnvLogFile, ""),
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) IsProduction() bool {
	return cfg.AppEnv == EnvironmentProduction
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects the optional Redis client. It is a no-op when no address
// is configured.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("Redis not configured, using in-memory stores")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	switch cfg.AppEnv {
	case EnvironmentDevelopment, EnvironmentProduction, EnvironmentTest:
	default:
		errors = append(errors, fmt.Sprintf("AppEnv must be one of [development, production, test], got: %s", cfg.AppEnv))
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.JWTAccessTTL <= 0 {
		errors = append(errors, fmt.Sprintf("JWTAccessTTL must be positive, got: %s", cfg.JWTAccessTTL))
	}
	if cfg.JWTRefreshTTL <= cfg.JWTAccessTTL {
		errors = append(errors, fmt.Sprintf("JWTRefreshTTL (%s) must be longer than JWTAccessTTL (%s)", cfg.JWTRefreshTTL, cfg.JWTAccessTTL))
	}
	if cfg.PasswordResetTTL <= 0 {
		errors = append(errors, fmt.Sprintf("PasswordResetTTL must be positive, got: %s", cfg.PasswordResetTTL))
	}
	if cfg.TenantCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("TenantCacheTTL must be positive, got: %s", cfg.TenantCacheTTL))
	}

	for _, proxy := range cfg.TrustedProxies {
		if !validProxy(proxy) {
			errors = append(errors, fmt.Sprintf("TrustedProxies entry must be an IP or CIDR, got: %s", proxy))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	if len(cfg.DefaultCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("DefaultCurrency must be a 3-letter ISO code, got: %s", cfg.DefaultCurrency))
	}
	if cfg.PlatformFeeRate < 0 || cfg.PlatformFeeRate >= 1 {
		errors = append(errors, fmt.Sprintf("PlatformFeeRate must be in [0, 1), got: %v", cfg.PlatformFeeRate))
	}
	if cfg.TracingSamplerRate < 0 || cfg.TracingSamplerRate > 1 {
		errors = append(errors, fmt.Sprintf("TracingSamplerRate must be in [0, 1], got: %v", cfg.TracingSamplerRate))
	}
	if cfg.TracingProtocol != "grpc" && cfg.TracingProtocol != "http" {
		errors = append(errors, fmt.Sprintf("TracingProtocol must be grpc or http, got: %s", cfg.TracingProtocol))
	}

	return joinErrors(errors)
}

// ValidateAPI checks the settings only the HTTP API needs: signing secrets
// and payment credentials.
func (cfg *Config) ValidateAPI() error {
	var errors []string

	if len(cfg.JWTAccessSecret) < minSecretLength {
		errors = append(errors, fmt.Sprintf("JWTAccessSecret must be at least %d characters", minSecretLength))
	}
	if len(cfg.JWTRefreshSecret) < minSecretLength {
		errors = append(errors, fmt.Sprintf("JWTRefreshSecret must be at least %d characters", minSecretLength))
	}
	if cfg.JWTAccessSecret != "" && cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		errors = append(errors, "JWTAccessSecret and JWTRefreshSecret must differ")
	}
	if cfg.IsProduction() {
		if cfg.StripeSecretKey == "" {
			errors = append(errors, "StripeSecretKey is required in production")
		}
		if cfg.StripeWebhookSecret == "" {
			errors = append(errors, "StripeWebhookSecret is required in production")
		}
	}

	return joinErrors(errors)
}

func joinErrors(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	errMsg := "Configuration validation failed:\n"
	for i, err := range errors {
		errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
	}
	return fmt.Errorf("%s", errMsg)
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"app_env", cfg.AppEnv,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"trusted_proxies", cfg.TrustedProxies,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"jwt_access_secret_set", cfg.JWTAccessSecret != "",
		"jwt_refresh_secret_set", cfg.JWTRefreshSecret != "",
		"jwt_access_ttl", cfg.JWTAccessTTL,
		"jwt_refresh_ttl", cfg.JWTRefreshTTL,
		"cookie_domain", cfg.CookieDomain,
		"cookie_secure", cfg.CookieSecure,
		"stripe_secret_set", cfg.StripeSecretKey != "",
		"stripe_webhook_secret_set", cfg.StripeWebhookSecret != "",
		"default_currency", cfg.DefaultCurrency,
		"platform_fee_rate", cfg.PlatformFeeRate,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"tenant_cache_ttl", cfg.TenantCacheTTL,
		"booking_events_topic", cfg.BookingEventsTopic,
		"metrics_namespace", cfg.MetricsNamespace,
		"tracing_enabled", cfg.TracingEnabled,
		"tracing_endpoint", cfg.TracingEndpoint,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func validProxy(value string) bool {
	if strings.Contains(value, "/") {
		_, err := netip.ParsePrefix(value)
		return err == nil
	}
	_, err := netip.ParseAddr(value)
	return err == nil
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultPaginationLimit
	} else if limit > MaxPaginationLimit {
		limit = MaxPaginationLimit
	}
	return limit
}

func NormalizePage(page int) int {
	return max(1, page)
}
