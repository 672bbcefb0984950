package validation

import (
	"errors"
	"strings"
	"testing"

	"telehealth/pkg/logger"
)

type window struct {
	DayOfWeek string `json:"dayOfWeek" validate:"required,weekday"`
	StartTime string `json:"startTime" validate:"required,clock"`
	Date      string `json:"selectedDate" validate:"omitempty,calendar_date"`
}

func TestStruct(t *testing.T) {
	v := New(logger.Discard())

	tests := []struct {
		name       string
		input      window
		wantFields []string
	}{
		{"valid", window{DayOfWeek: "monday", StartTime: "09:00", Date: "2025-03-10"}, nil},
		{"missing day", window{StartTime: "09:00"}, []string{"dayOfWeek"}},
		{"bad weekday", window{DayOfWeek: "Mon", StartTime: "09:00"}, []string{"dayOfWeek"}},
		{"bad clock", window{DayOfWeek: "Monday", StartTime: "9am"}, []string{"startTime"}},
		{"bad date", window{DayOfWeek: "Monday", StartTime: "09:00", Date: "2025-13-01"}, []string{"selectedDate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(v, tt.input)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var fieldErrs FieldErrors
			if !errors.As(err, &fieldErrs) {
				t.Fatalf("expected FieldErrors, got %v", err)
			}
			for _, want := range tt.wantFields {
				found := false
				for _, fe := range fieldErrs {
					if fe.Field == want {
						found = true
					}
				}
				if !found {
					t.Errorf("expected error on %s, got %v", want, fieldErrs)
				}
			}
		})
	}
}

func TestFieldErrors_Details(t *testing.T) {
	errs := FieldErrors{{Field: "startTime", Message: "startTime is required"}}
	fields, ok := errs.Details()["fields"].(map[string]any)
	if !ok || fields["startTime"] != "startTime is required" {
		t.Errorf("unexpected details %v", errs.Details())
	}
	if !strings.Contains(errs.Error(), "1 error(s)") {
		t.Errorf("unexpected message %q", errs.Error())
	}
}
