// Package mongotest connects integration tests to a throwaway MongoDB
// database. Tests are skipped unless TOURHUB_TEST_MONGO_URI is set.
package mongotest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tourhub/pkg/client"
	"tourhub/pkg/config"
	"tourhub/pkg/logger"
)

const (
	EnvMongoURI       = "TOURHUB_TEST_MONGO_URI"
	connectionTimeout = 10 * time.Second
)

// Config returns a service config pointing at a fresh database that is
// dropped when the test finishes.
func Config(t *testing.T) *config.Config {
	t.Helper()

	uri := os.Getenv(EnvMongoURI)
	if uri == "" {
		t.Skipf("%s not set, skipping MongoDB integration test", EnvMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	dbName := "tourhub_test_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		defer cancel()
		if err := mc.Database(dbName).Drop(ctx); err != nil {
			t.Logf("warning: failed to drop %s: %v", dbName, err)
		}
		if err := mc.Disconnect(ctx); err != nil {
			t.Logf("warning: failed to disconnect from MongoDB: %v", err)
		}
	})

	return &config.Config{
		MongoDatabaseName: dbName,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		DefaultCurrency:   "USD",
		Log:               logger.Nop(),
		Client:            &client.Client{Mongo: mc},
	}
}

// Database is shorthand for the test database of cfg.
func Database(cfg *config.Config) *mongo.Database {
	return cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
}
