package main

import (
	"context"

	attractionshandler "tourhub/internal/attractions/handler"
	attractionsrepository "tourhub/internal/attractions/repository"
	attractionsservice "tourhub/internal/attractions/service"
	authhandler "tourhub/internal/auth/handler"
	authservice "tourhub/internal/auth/service"
	bookingshandler "tourhub/internal/bookings/handler"
	bookingsrepository "tourhub/internal/bookings/repository"
	bookingsservice "tourhub/internal/bookings/service"
	cataloghandler "tourhub/internal/catalog/handler"
	catalogrepository "tourhub/internal/catalog/repository"
	catalogservice "tourhub/internal/catalog/service"
	paymentshandler "tourhub/internal/payments/handler"
	paymentsservice "tourhub/internal/payments/service"
	promocodeshandler "tourhub/internal/promocodes/handler"
	promocodesrepository "tourhub/internal/promocodes/repository"
	promocodesservice "tourhub/internal/promocodes/service"
	tenantshandler "tourhub/internal/tenants/handler"
	tenantsrepository "tourhub/internal/tenants/repository"
	tenantsservice "tourhub/internal/tenants/service"
	usershandler "tourhub/internal/users/handler"
	usersrepository "tourhub/internal/users/repository"
	usersservice "tourhub/internal/users/service"
	"tourhub/pkg/app"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	"tourhub/pkg/contracts"
	"tourhub/pkg/events"
	"tourhub/pkg/kafka"
	kafka_config "tourhub/pkg/kafka/config"
	"tourhub/pkg/metrics"
	"tourhub/pkg/payment"
	"tourhub/pkg/trace"
	"tourhub/pkg/validation"
)

const ServiceName = "tourhub-api"

func main() {
	cfg := config.Load(ServiceName)
	if err := cfg.ValidateAPI(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	shutdownTracing, err := trace.Init(context.Background(), trace.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.TracingEndpoint,
		Protocol:    cfg.TracingProtocol,
		Insecure:    cfg.TracingInsecure,
		SamplerRate: cfg.TracingSamplerRate,
		Environment: cfg.AppEnv,
	}, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialise tracing", "error", err)
	}

	cfg.SetMongo()
	cfg.SetRedis()

	m := metrics.New(cfg.MetricsNamespace)
	publisher := initPublisher(cfg, m)

	cfg.Log.Info("Starting TourHub API")
	serverApp := app.NewApplication(cfg, m)
	serverApp.OnShutdown(shutdownTracing)
	serverApp.OnShutdown(func(context.Context) error { return publisher.Close() })
	serverApp.SetApp(initHandlers(cfg, m, publisher)...)
	serverApp.Run()
}

// initTenantCache returns nil when Redis is not configured. The cache adds
// its own "tenant:" namespace under RedisKeyPrefix.
func initTenantCache(cfg *config.Config) tenantsservice.TenantCache {
	if cfg.Client.Redis == nil {
		return nil
	}
	return tenantsservice.NewRedisTenantCache(cfg.Client.Redis, cfg.RedisKeyPrefix, cfg.TenantCacheTTL, cfg.Log)
}

func initHandlers(cfg *config.Config, m *metrics.Metrics, publisher events.Publisher) []contracts.Handler {
	validator := validation.New(cfg.Log)

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshSecret: cfg.JWTRefreshSecret,
		RefreshTTL:    cfg.JWTRefreshTTL,
	})
	if err != nil {
		cfg.Log.Fatal("Failed to create token service", "error", err)
	}

	tenantCache := initTenantCache(cfg)

	userRepo := usersrepository.NewMongoUserRepository(cfg)
	tenantRepo := tenantsrepository.NewMongoTenantRepository(cfg)
	categoryRepo := catalogrepository.NewMongoCategoryRepository(cfg)
	destinationRepo := catalogrepository.NewMongoDestinationRepository(cfg)
	attractionRepo := attractionsrepository.NewMongoAttractionRepository(cfg)
	promoRepo := promocodesrepository.NewMongoPromoCodeRepository(cfg)
	bookingRepo := bookingsrepository.NewMongoBookingRepository(cfg)

	gateway := initGateway(cfg)

	authService := authservice.NewAuthService(userRepo, tokens, validator, cfg)
	tenantService := tenantsservice.NewTenantService(tenantRepo, tenantCache, validator, cfg)
	userService := usersservice.NewUserService(userRepo, attractionRepo, validator, cfg)
	categoryService := catalogservice.NewCategoryService(categoryRepo, validator, cfg)
	destinationService := catalogservice.NewDestinationService(destinationRepo, validator, cfg)
	attractionService := attractionsservice.NewAttractionService(attractionRepo, categoryRepo, destinationRepo, validator, cfg)
	promoService := promocodesservice.NewPromoCodeService(promoRepo, validator, cfg)
	bookingService := bookingsservice.NewBookingService(bookingRepo, attractionRepo, userRepo, gateway, publisher, validator, cfg)
	paymentService := paymentsservice.NewPaymentService(bookingRepo, gateway, publisher, m, validator, cfg)

	cfg.Log.Info("Services initialized",
		"database", cfg.MongoDatabaseName,
		"platform_fee_rate", cfg.PlatformFeeRate,
	)

	return []contracts.Handler{
		authhandler.NewAuthHandler(authService, tenantService, cfg),
		tenantshandler.NewTenantHandler(tenantService, authService, cfg.Log),
		usershandler.NewUserHandler(userService, authService, cfg.Log),
		cataloghandler.NewCatalogHandler(categoryService, destinationService, authService, cfg.Log),
		attractionshandler.NewAttractionHandler(attractionService, authService, tenantService, cfg.Log),
		promocodeshandler.NewPromoCodeHandler(promoService, authService, tenantService, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, authService, tenantService, cfg.Log),
		paymentshandler.NewPaymentHandler(paymentService, authService, cfg.Log),
	}
}

func initGateway(cfg *config.Config) payment.Gateway {
	if cfg.StripeSecretKey == "" {
		cfg.Log.Warn("Stripe not configured, payment endpoints will return 503")
		return payment.Disabled{}
	}
	return payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
}

func initPublisher(cfg *config.Config, m *metrics.Metrics) events.Publisher {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kafkaCfg.Enabled() {
		cfg.Log.Info("Kafka not configured, booking events are not published")
		return events.Nop{Metrics: m}
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	return events.NewKafkaPublisher(producer, m, cfg.Log)
}
