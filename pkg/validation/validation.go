// Package validation builds the go-playground validator shared by the request
// validators and translates its failures into field-level messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"telehealth/pkg/calendar"
	"telehealth/pkg/logger"
	"telehealth/pkg/timeofday"
)

const (
	TagWeekday      = "weekday"
	TagClock        = "clock"
	TagCalendarDate = "calendar_date"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v FieldError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type FieldErrors []FieldError

func (v FieldErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details renders the errors as the details map of an API error.
func (v FieldErrors) Details() map[string]any {
	fields := make(map[string]any, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return map[string]any{"fields": fields}
}

// New returns a validator with the scheduling tags registered. Field names in
// errors follow the JSON names clients send.
func New(log *logger.Logger) *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation(TagWeekday, validateWeekday); err != nil {
		log.Fatal("Failed to register 'weekday' validator", "error", err)
	}
	if err := v.RegisterValidation(TagClock, validateClock); err != nil {
		log.Fatal("Failed to register 'clock' validator", "error", err)
	}
	if err := v.RegisterValidation(TagCalendarDate, validateCalendarDate); err != nil {
		log.Fatal("Failed to register 'calendar_date' validator", "error", err)
	}

	return v
}

func validateWeekday(fl validator.FieldLevel) bool {
	_, err := calendar.ParseWeekday(fl.Field().String())
	return err == nil
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := timeofday.Parse(fl.Field().String())
	return err == nil
}

func validateCalendarDate(fl validator.FieldLevel) bool {
	_, err := calendar.ParseDate(fl.Field().String())
	return err == nil
}

// Struct validates s and converts validator failures into FieldErrors.
func Struct(v *validator.Validate, s any) error {
	if err := v.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return Translate(validationErrs)
		}
		return err
	}
	return nil
}

func Translate(errs validator.ValidationErrors) FieldErrors {
	var out FieldErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of [%s]", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid id", err.Field())
		case TagWeekday:
			message = fmt.Sprintf("%s must be a weekday name (Monday-Sunday)", err.Field())
		case TagClock:
			message = fmt.Sprintf("%s must be a time in HH:mm format", err.Field())
		case TagCalendarDate:
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		}

		out = append(out, FieldError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return out
}
