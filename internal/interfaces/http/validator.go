package http

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// maxTokenExpirationDays caps admin-issued token lifetimes at ten years.
const maxTokenExpirationDays = 3650

// RegisterCustomValidators installs request-binding validations used by the
// handlers. Must run once before the engine starts serving.
func RegisterCustomValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine type %T", binding.Validator.Engine())
	}

	return v.RegisterValidation("expirationdays", validateExpirationDays)
}

func validateExpirationDays(fl validator.FieldLevel) bool {
	days := fl.Field().Int()
	return days >= 1 && days <= maxTokenExpirationDays
}
