package validators

import "go.mongodb.org/mongo-driver/bson"

var integer = bson.A{"int", "long"}

var minuteOfDay = bson.M{
	"bsonType": integer,
	"minimum":  0,
	"maximum":  1439,
}

var weekdays = []string{
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
	"Sunday",
}

var AvailabilityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"therapist_id",
			"day_of_week",
			"start_time",
			"end_time",
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
			"day_of_week": bson.M{
				"bsonType": "string",
				"enum":     weekdays,
			},
			"start_time": minuteOfDay,
			"end_time":   minuteOfDay,
			"created_at": bson.M{
				"bsonType": "date",
			},
			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
