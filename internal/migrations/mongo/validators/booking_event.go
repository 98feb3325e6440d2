package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingEventValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"type",
			"booking_id",
			"status",
			"occurred_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"type": bson.M{
				"bsonType": "string",
				"pattern":  "^booking\\.",
			},

			"booking_id": bson.M{
				"bsonType": "string",
			},

			"listing_id": bson.M{
				"bsonType": "string",
			},

			"user_id": bson.M{
				"bsonType": "string",
			},

			"status": bson.M{
				"bsonType": "string",
			},

			"occurred_at": bson.M{
				"bsonType": "date",
			},

			"received_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
