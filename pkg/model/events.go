package model

import "time"

type SessionEventType string

const (
	EventSessionBooked    SessionEventType = "session.booked"
	EventSessionAccepted  SessionEventType = "session.accepted"
	EventSessionDeclined  SessionEventType = "session.declined"
	EventSessionCancelled SessionEventType = "session.cancelled"
	EventSessionCompleted SessionEventType = "session.completed"
)

// SessionEvent tells one participant about a change to a session. The
// notification service downstream turns it into a message.
type SessionEvent struct {
	ID            string           `json:"id"`
	Type          SessionEventType `json:"type"`
	SessionID     string           `json:"session_id"`
	TherapistID   int64            `json:"therapist_id"`
	PatientID     int64            `json:"patient_id"`
	RecipientID   int64            `json:"recipient_id"`
	ActorID       int64            `json:"actor_id,omitempty"`
	Message       string           `json:"message"`
	Status        SessionStatus    `json:"status"`
	ScheduledDate string           `json:"scheduled_date"`
	StartTime     string           `json:"start_time"`
	EndTime       string           `json:"end_time"`
	MeetingRoomID string           `json:"meeting_room_id,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

type ActivityEvent struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	ActivityType string    `json:"activity_type"`
	IPAddress    string    `json:"ip_address,omitempty"`
	DeviceInfo   string    `json:"device_info,omitempty"`
	LoggedAt     time.Time `json:"logged_at"`
}

// ToLog converts a consumed activity event into its stored form.
func (e ActivityEvent) ToLog() *ActivityLog {
	return &ActivityLog{
		EventID:      e.ID,
		UserID:       e.UserID,
		ActivityType: e.ActivityType,
		IPAddress:    e.IPAddress,
		DeviceInfo:   e.DeviceInfo,
		LoggedAt:     e.LoggedAt,
	}
}
