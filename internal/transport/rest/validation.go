package rest

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateRequest validates a request DTO and returns a user-facing message.
func validateRequest(req interface{}) (string, bool) {
	err := validate.Struct(req)
	if err == nil {
		return "", true
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "invalid body", false
	}

	var messages []string
	for _, fe := range verrs {
		messages = append(messages, formatFieldError(fe))
	}
	return strings.Join(messages, "; "), false
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
