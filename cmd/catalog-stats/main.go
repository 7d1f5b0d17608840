package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	attractionsrepository "tourhub/internal/attractions/repository"
	"tourhub/internal/catalogstats"
	"tourhub/pkg/config"
	"tourhub/pkg/kafka"
	kafka_config "tourhub/pkg/kafka/config"
	kafka_middleware "tourhub/pkg/kafka/middleware"
	"tourhub/pkg/metrics"
)

const ServiceName = "catalog-stats"

func main() {
	cfg := config.Load(ServiceName)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kafkaCfg.Enabled() {
		cfg.Log.Fatal("KAFKA_BROKERS is required for the catalog stats worker")
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	m := metrics.New(cfg.MetricsNamespace)
	handler := catalogstats.NewHandler(attractionsrepository.NewMongoAttractionRepository(cfg), cfg.Log)

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.BookingEventsTopic, handler.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware(m))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Log.Error("Metrics server failed", "error", err)
		}
	}()

	cfg.Log.Info("Consuming booking events",
		"topic", cfg.BookingEventsTopic,
		"group", kafkaCfg.ConsumerGroupID,
		"metrics_port", cfg.Port,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		cfg.Log.Error("Metrics server shutdown failed", "error", err)
	}
	cfg.Log.Info("Catalog stats worker stopped")
}
