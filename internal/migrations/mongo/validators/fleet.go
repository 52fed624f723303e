package validators

import "go.mongodb.org/mongo-driver/bson"

var VehicleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"capacity",
			"status",
			"is_active",
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

			"capacity": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  200,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"available",
					"assigned",
					"out_of_service",
				},
			},

			"is_active": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var ShiftValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"driver_id",
			"driver_name",
			"clock_in",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"driver_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"driver_name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"clock_in": bson.M{
				"bsonType": "date",
			},

			"clock_out": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var ClientServiceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"client_name",
			"service_type",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"client_name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"client_phone": bson.M{
				"bsonType": "string",
			},

			"service_type": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var VehicleAssignmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"shift_id",
			"vehicle_id",
			"driver_id",
			"driver_name",
			"client_service_id",
			"assigned_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"shift_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"vehicle_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"driver_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"driver_name": bson.M{
				"bsonType": "string",
			},

			"client_service_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"assigned_at": bson.M{
				"bsonType": "date",
			},

			"released_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
