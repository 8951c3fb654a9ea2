// Package validate provides shared input validation for CineVerse HTTP handlers.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"regexp"
)

// ValidationError describes a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiError collects multiple validation errors for a single request.
type MultiError struct {
	Errors []ValidationError
}

// Add appends a validation error. If err is nil, Add is a no-op.
func (m *MultiError) Add(err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		m.Errors = append(m.Errors, *ve)
	} else {
		m.Errors = append(m.Errors, ValidationError{Field: "request", Message: err.Error()})
	}
}

// HasErrors reports whether any errors have been collected.
func (m *MultiError) HasErrors() bool { return len(m.Errors) > 0 }

// Error returns a pipe-delimited summary of all errors.
func (m *MultiError) Error() string {
	parts := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, " | ")
}

// NonEmptyString validates that value is not empty or whitespace-only.
func NonEmptyString(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "must not be empty"}
	}
	return nil
}

// MinLength validates that value contains at least min runes.
func MinLength(field, value string, min int) error {
	if utf8.RuneCountInString(value) < min {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be at least %d characters", min)}
	}
	return nil
}

// MaxLength validates that value does not exceed max rune count.
func MaxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must not exceed %d characters", max)}
	}
	return nil
}

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsEmail validates that value looks like an email address.
func IsEmail(field, value string) error {
	v := strings.TrimSpace(value)
	if len(v) > 254 || !emailRE.MatchString(v) {
		return &ValidationError{Field: field, Message: "must be a valid email address"}
	}
	return nil
}

var otpRE = regexp.MustCompile(`^[0-9]{6}$`)

// IsOTPCode validates that value is a 6-digit verification code.
func IsOTPCode(field, value string) error {
	if !otpRE.MatchString(strings.TrimSpace(value)) {
		return &ValidationError{Field: field, Message: "must be a 6-digit code"}
	}
	return nil
}

// IsPositiveInt validates that value is strictly positive.
func IsPositiveInt(field string, value int) error {
	if value <= 0 {
		return &ValidationError{Field: field, Message: "must be a positive integer"}
	}
	return nil
}

// IntInRange validates that value is within [min, max] inclusive.
func IntInRange(field string, value, min, max int) error {
	if value < min || value > max {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be between %d and %d", min, max)}
	}
	return nil
}
