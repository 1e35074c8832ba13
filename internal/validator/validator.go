package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// New creates a validator instance with custom validations registered,
// shared by the application and its tests.
func New() *validator.Validate {
	v := validator.New()

	// "notblank" rejects whitespace-only strings. Coupon codes must carry
	// meaningful content, not just pass the "required" check.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true // not a string, let other validators handle it
		}
		return strings.TrimSpace(str) != ""
	})

	return v
}
