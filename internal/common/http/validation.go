package http

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the validator tags declared on a request DTO. The
// caller maps the failure to its own domain error, so only the first
// offending field name is surfaced.
func ValidateStruct(v any) (string, error) {
	err := validate.Struct(v)
	if err == nil {
		return "", nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		return fieldErrs[0].Field(), err
	}
	return "", err
}
