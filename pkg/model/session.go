package model

import (
	"time"

	"telehealth/pkg/timeofday"
)

type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusAccepted  SessionStatus = "accepted"
	StatusDeclined  SessionStatus = "declined"
	StatusCancelled SessionStatus = "cancelled"
	StatusCompleted SessionStatus = "completed"
)

// ActiveStatuses hold a slot: they count against double booking and block
// availability deletion.
var ActiveStatuses = []SessionStatus{StatusPending, StatusAccepted}

// transitions lists, for each target status, the statuses it may be entered
// from.
var transitions = map[SessionStatus][]SessionStatus{
	StatusAccepted:  {StatusPending},
	StatusDeclined:  {StatusPending},
	StatusCancelled: {StatusPending, StatusAccepted},
	StatusCompleted: {StatusAccepted},
}

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

func (s SessionStatus) Active() bool {
	return s == StatusPending || s == StatusAccepted
}

func (s SessionStatus) Terminal() bool {
	return s == StatusDeclined || s == StatusCancelled || s == StatusCompleted
}

// AllowedFrom returns the statuses from which a session may move to target.
func AllowedFrom(target SessionStatus) []SessionStatus {
	return transitions[target]
}

func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	for _, from := range transitions[target] {
		if from == s {
			return true
		}
	}
	return false
}

type SessionType string

const (
	SessionTypeVideoCall SessionType = "video_call"
	SessionTypeAudioCall SessionType = "audio_call"
	SessionTypeChat      SessionType = "chat"
)

type Session struct {
	ID               string              `json:"id,omitempty" bson:"_id,omitempty"`
	TherapistID      int64               `json:"therapistId" bson:"therapist_id" validate:"gt=0"`
	PatientID        int64               `json:"patientId" bson:"patient_id" validate:"gt=0"`
	ScheduledDate    string              `json:"scheduledDate" bson:"scheduled_date" validate:"required,calendar_date"`
	StartTime        timeofday.TimeOfDay `json:"startTime" bson:"start_time"`
	EndTime          timeofday.TimeOfDay `json:"endTime" bson:"end_time"`
	Status           SessionStatus       `json:"status" bson:"status" validate:"oneof=pending accepted declined cancelled completed"`
	Active           bool                `json:"-" bson:"active"`
	SessionType      SessionType         `json:"sessionType" bson:"session_type" validate:"oneof=video_call audio_call chat"`
	IssueDescription string              `json:"issueDescription,omitempty" bson:"issue_description,omitempty" validate:"max=2000"`
	MeetingRoomID    string              `json:"meetingRoomId,omitempty" bson:"meeting_room_id,omitempty"`
	CompletedAt      *time.Time          `json:"completedAt,omitempty" bson:"completed_at,omitempty"`
	CreatedAt        time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time           `json:"updatedAt" bson:"updated_at"`
}

// HasParticipant reports whether userID is the therapist or the patient.
func (s *Session) HasParticipant(userID int64) bool {
	return s.TherapistID == userID || s.PatientID == userID
}

// BookingRequest is the body of POST /sessions/book. Numeric ids arrive as
// JSON numbers or numeric strings.
type BookingRequest struct {
	TherapistID      FlexibleID `json:"therapistId"`
	PatientID        FlexibleID `json:"patientId"`
	SelectedDate     string     `json:"selectedDate"`
	StartTime        string     `json:"startTime"`
	EndTime          string     `json:"endTime"`
	SessionType      string     `json:"sessionType,omitempty"`
	IssueDescription string     `json:"issueDescription,omitempty"`
}

// SessionAction is the body of the accept, decline and cancel endpoints.
type SessionAction struct {
	SessionID string `json:"sessionId" validate:"required,mongodb"`
}

type SlotsRequest struct {
	TherapistID  FlexibleID `json:"therapistId"`
	SelectedDate string     `json:"selectedDate"`
}

// Slot is a derived bookable interval. It is never stored.
type Slot struct {
	Start timeofday.TimeOfDay `json:"start"`
	End   timeofday.TimeOfDay `json:"end"`
}
