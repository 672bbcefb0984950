package validators

import "go.mongodb.org/mongo-driver/bson"

var SessionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"therapist_id",
			"patient_id",
			"scheduled_date",
			"start_time",
			"end_time",
			"status",
			"active",
			"session_type",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},
			"therapist_id": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},
			"patient_id": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},
			"scheduled_date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},
			"start_time": minuteOfDay,
			"end_time":   minuteOfDay,
			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"accepted",
					"declined",
					"cancelled",
					"completed",
				},
			},
			"active": bson.M{
				"bsonType": "bool",
			},
			"session_type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"video_call",
					"audio_call",
					"chat",
				},
			},
			"issue_description": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},
			"meeting_room_id": bson.M{
				"bsonType": "string",
			},
			"completed_at": bson.M{
				"bsonType": "date",
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
