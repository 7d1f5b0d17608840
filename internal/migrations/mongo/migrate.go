package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tourhub/internal/migrations/mongo/validators"
	"tourhub/pkg/logger"
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

var (
	UsersIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "tenants", Value: 1}}},
	}

	TenantsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "domains", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	CategoriesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "sortOrder", Value: 1}}},
	}

	DestinationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "featured", Value: -1}, {Key: "sortOrder", Value: 1}}},
	}

	AttractionsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "destination", Value: 1},
			{Key: "category", Value: 1},
		}},
		{Keys: bson.D{{Key: "tenants", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "featured", Value: -1}, {Key: "rating.average", Value: -1}}},
		{Keys: bson.D{{Key: "pricing.basePrice", Value: 1}}},
	}

	PromoCodesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenants", Value: 1}, {Key: "isActive", Value: 1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "paymentIntentId", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "tenant", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{
			{Key: "attraction", Value: 1},
			{Key: "bookingDate", Value: 1},
			{Key: "status", Value: 1},
		}},
	}
)

func collections() map[string]collectionDef {
	return map[string]collectionDef{
		"users":        {Indexes: UsersIndexes, Validator: validators.UserValidator},
		"tenants":      {Indexes: TenantsIndexes, Validator: validators.TenantValidator},
		"categories":   {Indexes: CategoriesIndexes},
		"destinations": {Indexes: DestinationsIndexes},
		"attractions":  {Indexes: AttractionsIndexes, Validator: validators.AttractionValidator},
		"promo_codes":  {Indexes: PromoCodesIndexes, Validator: validators.PromoCodeValidator},
		"bookings":     {Indexes: BookingsIndexes, Validator: validators.BookingValidator},
	}
}

// RunMigration creates missing collections, refreshes their JSON schema
// validators and ensures indexes. It is safe to run repeatedly.
func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for name, def := range collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
