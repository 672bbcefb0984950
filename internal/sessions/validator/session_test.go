package validator

import (
	"strings"
	"testing"

	"telehealth/pkg/logger"
	"telehealth/pkg/model"
	"telehealth/pkg/timeofday"
)

func validSession() *model.Session {
	return &model.Session{
		TherapistID:   5,
		PatientID:     9,
		ScheduledDate: "2025-03-10",
		StartTime:     timeofday.MustParse("09:00"),
		EndTime:       timeofday.MustParse("09:45"),
		Status:        model.StatusPending,
		SessionType:   model.SessionTypeVideoCall,
	}
}

func TestValidate(t *testing.T) {
	v := NewSessionValidator(logger.Discard())

	tests := []struct {
		name      string
		mutate    func(s *model.Session)
		wantField string
	}{
		{"valid", func(s *model.Session) {}, ""},
		{"unknown session type", func(s *model.Session) { s.SessionType = "carrier_pigeon" }, "sessionType"},
		{"bad date", func(s *model.Session) { s.ScheduledDate = "10/03/2025" }, "scheduledDate"},
		{"zero therapist", func(s *model.Session) { s.TherapistID = 0 }, "therapistId"},
		{"description too long", func(s *model.Session) { s.IssueDescription = strings.Repeat("a", 2001) }, "issueDescription"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSession()
			tt.mutate(s)
			err := v.Validate(s)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("expected error on %s, got %v", tt.wantField, err)
			}
		})
	}
}

func TestValidateAction(t *testing.T) {
	v := NewSessionValidator(logger.Discard())
	if err := v.ValidateAction(&model.SessionAction{SessionID: "65f1c2a9e4b0a1b2c3d4e5f6"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateAction(&model.SessionAction{SessionID: "42"}); err == nil {
		t.Error("expected error for non-ObjectID session id")
	}
}
