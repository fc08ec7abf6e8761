package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
)

// newValidator returns a validator with the custom tags used by request DTOs.
func newValidator() *validator.Validate {
	v := validator.New()
	registerValidations(v)
	return v
}

func registerValidations(v *validator.Validate) {
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, _, ok := models.ParseClock(fl.Field().String())
		return ok
	})
}
