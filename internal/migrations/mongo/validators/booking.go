package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"reference",
			"attraction",
			"bookingDate",
			"items",
			"total",
			"currency",
			"status",
			"paymentStatus",
			"contactEmail",
			"createdAt",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{"bsonType": "objectId"},

			"reference": bson.M{
				"bsonType": "string",
				"pattern":  "^TB-[A-HJ-NP-Z2-9]{8}$",
			},

			"user":       bson.M{"bsonType": "objectId"},
			"attraction": bson.M{"bsonType": "objectId"},
			"tenant":     bson.M{"bsonType": "objectId"},

			"bookingDate": bson.M{"bsonType": "date"},

			"items": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"maxItems": 20,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"optionId", "quantity", "unitPrice", "totalPrice"},
					"properties": bson.M{
						"quantity":   bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
						"unitPrice":  bson.M{"bsonType": "double", "minimum": 0},
						"totalPrice": bson.M{"bsonType": "double", "minimum": 0},
					},
				},
			},

			"subtotal": bson.M{"bsonType": "double", "minimum": 0},
			"fees":     bson.M{"bsonType": "double", "minimum": 0},
			"discount": bson.M{"bsonType": "double", "minimum": 0},
			"total":    bson.M{"bsonType": "double", "minimum": 0},

			"currency": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"status": bson.M{
				"enum": []string{"pending", "confirmed", "cancelled", "completed", "refunded"},
			},

			"paymentStatus": bson.M{
				"enum": []string{"pending", "processing", "succeeded", "failed", "refunded"},
			},

			"contactEmail": bson.M{"bsonType": "string"},

			"specialRequests": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"createdAt": bson.M{"bsonType": "date"},
			"updatedAt": bson.M{"bsonType": "date"},
		},
	},
}
