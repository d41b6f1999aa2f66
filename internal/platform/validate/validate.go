// Package validate wraps go-playground/validator with the custom rules
// used by request payloads and turns its errors into client-facing
// field messages.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// New returns a validator with the platform's custom rules registered:
//   - "username": letters, digits and underscores only
//   - "password": at least one lowercase, one uppercase and one digit
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		var lower, upper, digit bool
		for _, r := range s {
			switch {
			case r >= 'a' && r <= 'z':
				lower = true
			case r >= 'A' && r <= 'Z':
				upper = true
			case r >= '0' && r <= '9':
				digit = true
			}
		}
		return lower && upper && digit
	})
	return v
}

// UUID reports whether s is a well-formed UUID. Path ids are checked
// with it before reaching a store, so a malformed id is a client error
// on every backend rather than a failed ::uuid cast in Postgres.
func UUID(s string) bool {
	return uuid.Validate(s) == nil
}

// Details maps each failed field to a human message, suitable for the
// details object of a VALIDATION error response.
func Details(err error) map[string]any {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]any{"body": "invalid payload"}
	}
	out := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		out[fieldName(fe)] = message(fe)
	}
	return out
}

// Message returns the message for the first failed field.
func Message(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid payload"
	}
	return fmt.Sprintf("%s %s", fieldName(verrs[0]), message(verrs[0]))
}

func fieldName(fe validator.FieldError) string {
	f := fe.Field()
	if f == "" {
		return "body"
	}
	// Struct field -> JSON-ish name (ReviewText -> reviewText).
	return strings.ToLower(f[:1]) + f[1:]
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("cannot exceed %s characters", fe.Param())
		}
		return fmt.Sprintf("cannot exceed %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "username":
		return "can only contain letters, numbers, and underscores"
	case "password":
		return "must contain at least one lowercase letter, one uppercase letter, and one number"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return "is invalid"
	}
}
