package validator

import (
	"testing"

	"telehealth/pkg/logger"
	"telehealth/pkg/model"
)

func TestValidate(t *testing.T) {
	v := NewAvailabilityValidator(logger.Discard())

	tests := []struct {
		name      string
		input     model.AvailabilityInput
		wantError bool
	}{
		{"valid window", model.AvailabilityInput{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:30"}, false},
		{"lower case day", model.AvailabilityInput{DayOfWeek: "friday", StartTime: "9:00", EndTime: "17:00"}, false},
		{"missing day", model.AvailabilityInput{StartTime: "09:00", EndTime: "10:30"}, true},
		{"missing end", model.AvailabilityInput{DayOfWeek: "Monday", StartTime: "09:00"}, true},
		{"unknown day", model.AvailabilityInput{DayOfWeek: "Funday", StartTime: "09:00", EndTime: "10:30"}, true},
		{"hour out of range", model.AvailabilityInput{DayOfWeek: "Monday", StartTime: "25:00", EndTime: "26:00"}, true},
		{"wrong separator", model.AvailabilityInput{DayOfWeek: "Monday", StartTime: "09-00", EndTime: "10:30"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateDelete(t *testing.T) {
	v := NewAvailabilityValidator(logger.Discard())

	if err := v.ValidateDelete(&model.AvailabilityDelete{ID: "65f1c2a9e4b0a1b2c3d4e5f6"}); err != nil {
		t.Errorf("expected valid id, got %v", err)
	}
	if err := v.ValidateDelete(&model.AvailabilityDelete{ID: "not-an-id"}); err == nil {
		t.Error("expected error for malformed id")
	}
	if err := v.ValidateDelete(&model.AvailabilityDelete{}); err == nil {
		t.Error("expected error for missing id")
	}
}
