package validator

import (
	"github.com/go-playground/validator/v10"

	"telehealth/pkg/logger"
	"telehealth/pkg/model"
	"telehealth/pkg/validation"
)

type SessionValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSessionValidator(log *logger.Logger) *SessionValidator {
	v := validation.New(log)

	log.Debug("Session validator initialized successfully")

	return &SessionValidator{
		validate: v,
		logger:   log,
	}
}

// Validate checks a session assembled from a booking request before it is
// stored.
func (v *SessionValidator) Validate(s *model.Session) error {
	return validation.Struct(v.validate, s)
}

func (v *SessionValidator) ValidateAction(a *model.SessionAction) error {
	return validation.Struct(v.validate, a)
}
