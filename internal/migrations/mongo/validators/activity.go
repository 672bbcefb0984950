package validators

import "go.mongodb.org/mongo-driver/bson"

var ActivityLogValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"event_id",
			"user_id",
			"activity_type",
			"logged_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"event_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"user_id": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},
			"activity_type": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},
			"ip_address": bson.M{
				"bsonType": "string",
			},
			"device_info": bson.M{
				"bsonType": "string",
			},
			"logged_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
