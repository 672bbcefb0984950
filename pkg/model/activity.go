package model

import "time"

const (
	ActivitySessionBooked    = "SESSION_BOOKED"
	ActivitySessionAccepted  = "SESSION_ACCEPTED"
	ActivitySessionDeclined  = "SESSION_DECLINED"
	ActivitySessionCancelled = "SESSION_CANCELLED"
	ActivitySessionCompleted = "SESSION_COMPLETED"
	ActivityAvailabilitySet  = "AVAILABILITY_UPDATED"
	ActivityAvailabilityDrop = "AVAILABILITY_DELETED"
)

type ActivityLog struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty"`
	EventID      string    `json:"eventId" bson:"event_id"`
	UserID       int64     `json:"userId" bson:"user_id"`
	ActivityType string    `json:"activityType" bson:"activity_type"`
	IPAddress    string    `json:"ipAddress,omitempty" bson:"ip_address,omitempty"`
	DeviceInfo   string    `json:"deviceInfo,omitempty" bson:"device_info,omitempty"`
	LoggedAt     time.Time `json:"loggedAt" bson:"logged_at"`
}
