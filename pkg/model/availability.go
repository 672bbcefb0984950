package model

import (
	"time"

	"telehealth/pkg/timeofday"
)

// Availability is a therapist's recurring weekly window. A therapist has at
// most one window per weekday.
type Availability struct {
	ID          string              `json:"id,omitempty" bson:"_id,omitempty"`
	TherapistID int64               `json:"therapistId" bson:"therapist_id"`
	DayOfWeek   string              `json:"dayOfWeek" bson:"day_of_week"`
	StartTime   timeofday.TimeOfDay `json:"startTime" bson:"start_time"`
	EndTime     timeofday.TimeOfDay `json:"endTime" bson:"end_time"`
	CreatedAt   time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time           `json:"updatedAt" bson:"updated_at"`
}

// AvailabilityInput is the body of POST /availability. Times stay strings
// until validated so a missing field is distinguishable from midnight.
type AvailabilityInput struct {
	DayOfWeek string `json:"dayOfWeek" validate:"required,weekday"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
}

type AvailabilityDelete struct {
	ID string `json:"id" validate:"required,mongodb"`
}
