package validation

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error on one request field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
	strict       = bluemonday.StrictPolicy()
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates v against its `validate` tags and returns the first
// failure as a ValidationError named after the JSON field.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	return ValidationError{Field: fe.Field(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return fe.Field() + " must be a date in YYYY-MM-DD format"
	case "base64":
		return fe.Field() + " must be base64 encoded"
	case "email":
		return "invalid email format"
	default:
		return fe.Field() + " is invalid"
	}
}

// CleanText strips all markup from user-supplied free text and trims it
func CleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// CleanOptional applies CleanText to a nullable value
func CleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := CleanText(*s)
	return &cleaned
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if len(email) > 255 || !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	if len(password) > 72 {
		return ValidationError{Field: "password", Message: "password must be at most 72 characters"}
	}
	return nil
}

// ValidateName checks if a person's name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	if utf8.RuneCountInString(name) > 100 {
		return ValidationError{Field: "name", Message: "name must be at most 100 characters"}
	}
	return nil
}

// ValidateLength checks that a trimmed value is non-empty and at most max runes
func ValidateLength(field, value string, max int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if utf8.RuneCountInString(value) > max {
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, max)}
	}
	return nil
}

// Var validates a single value against a validator tag such as "base64"
func Var(field string, value any, tag string) error {
	err := instance().Var(value, tag)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	return ValidationError{Field: field, Message: varMessage(field, fieldErrs[0])}
}

func varMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "base64":
		return field + " must be base64 encoded"
	case "datetime":
		return field + " must be a date in YYYY-MM-DD format"
	case "gt":
		return field + " must be greater than " + fe.Param()
	default:
		return field + " is invalid"
	}
}
