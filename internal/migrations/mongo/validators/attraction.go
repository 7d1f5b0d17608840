package validators

import "go.mongodb.org/mongo-driver/bson"

var AttractionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"title", "slug", "destination", "category", "pricing", "status", "createdAt"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "objectId"},
			"title":       bson.M{"bsonType": "string", "minLength": 3, "maxLength": 200},
			"slug":        bson.M{"bsonType": "string", "pattern": "^[a-z0-9]+(?:-[a-z0-9]+)*$"},
			"destination": bson.M{"bsonType": "objectId"},
			"category":    bson.M{"bsonType": "objectId"},
			"pricing": bson.M{
				"bsonType": "object",
				"required": []string{"currency"},
				"properties": bson.M{
					"basePrice": bson.M{"bsonType": "double", "minimum": 0},
					"currency":  bson.M{"bsonType": "string", "minLength": 3, "maxLength": 3},
				},
			},
			"tenants":   bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
			"status":    bson.M{"enum": []string{"active", "draft", "archived"}},
			"featured":  bson.M{"bsonType": "bool"},
			"createdAt": bson.M{"bsonType": "date"},
		},
	},
}
