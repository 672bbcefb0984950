package validator

import (
	"github.com/go-playground/validator/v10"

	"telehealth/pkg/logger"
	"telehealth/pkg/model"
	"telehealth/pkg/validation"
)

type AvailabilityValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAvailabilityValidator(log *logger.Logger) *AvailabilityValidator {
	v := validation.New(log)

	log.Debug("Availability validator initialized successfully")

	return &AvailabilityValidator{
		validate: v,
		logger:   log,
	}
}

// Validate checks the shape of a window: a weekday name and two HH:mm times.
// Ordering of the times is checked by the service once they are parsed.
func (v *AvailabilityValidator) Validate(in *model.AvailabilityInput) error {
	return validation.Struct(v.validate, in)
}

func (v *AvailabilityValidator) ValidateDelete(in *model.AvailabilityDelete) error {
	return validation.Struct(v.validate, in)
}
