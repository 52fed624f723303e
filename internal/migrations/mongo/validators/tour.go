package validators

import "go.mongodb.org/mongo-driver/bson"

var TourValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"booking_id",
			"vehicle_id",
			"tour_date",
			"max_guests",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"vehicle_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"tour_date": bson.M{
				"bsonType": "date",
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"max_guests": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  200,
			},

			"brand_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"scheduled",
					"cancelled",
					"completed",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var TicketValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"tour_id",
			"quantity",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"tour_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"quantity": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  50,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"cancelled",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
