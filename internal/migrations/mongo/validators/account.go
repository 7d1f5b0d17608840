package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "email", "password", "role", "status", "createdAt"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":      bson.M{"bsonType": "objectId"},
			"name":     bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"email":    bson.M{"bsonType": "string"},
			"password": bson.M{"bsonType": "string"},
			"role": bson.M{
				"enum": []string{"super-admin", "brand-admin", "manager", "editor", "viewer", "customer"},
			},
			"status":    bson.M{"enum": []string{"active", "inactive", "suspended", "pending"}},
			"tenants":   bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
			"wishlist":  bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
			"createdAt": bson.M{"bsonType": "date"},
		},
	},
}

var TenantValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "slug", "status", "createdAt"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":             bson.M{"bsonType": "objectId"},
			"name":            bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"slug":            bson.M{"bsonType": "string", "pattern": "^[a-z0-9]+(?:-[a-z0-9]+)*$"},
			"domains":         bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			"defaultCurrency": bson.M{"bsonType": "string", "minLength": 3, "maxLength": 3},
			"status":          bson.M{"enum": []string{"active", "inactive"}},
			"createdAt":       bson.M{"bsonType": "date"},
		},
	},
}

var PromoCodeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"code", "type", "value", "isActive", "createdAt"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":            bson.M{"bsonType": "objectId"},
			"code":           bson.M{"bsonType": "string", "minLength": 3, "maxLength": 32},
			"type":           bson.M{"enum": []string{"percentage", "fixed"}},
			"value":          bson.M{"bsonType": "double", "minimum": 0},
			"minOrderAmount": bson.M{"bsonType": "double", "minimum": 0},
			"usedCount":      bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"isActive":       bson.M{"bsonType": "bool"},
			"createdAt":      bson.M{"bsonType": "date"},
		},
	},
}
