package validator

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Var checks a single value against a go-playground tag, e.g. "email" or "uuid".
func Var(v any, tag string) bool {
	return validate.Var(v, tag) == nil
}
