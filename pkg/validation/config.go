package validation

import (
	"errors"
	"fmt"
	"math"
)

// ConfigValidator provides a fluent interface for validating configuration values.
// It collects all validation errors rather than failing on the first one.
type ConfigValidator struct {
	errors []error
	name   string
}

// NewConfigValidator creates a new config validator with the given config name.
func NewConfigValidator(configName string) *ConfigValidator {
	return &ConfigValidator{name: configName}
}

func (cv *ConfigValidator) add(field, format string, args ...any) {
	cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %s", cv.name, field, fmt.Sprintf(format, args...)))
}

// Finite validates that a float field is neither NaN nor infinite.
func (cv *ConfigValidator) Finite(field string, value float64) *ConfigValidator {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		cv.add(field, "value %v is not finite", value)
	}
	return cv
}

// PositiveFloat validates that a float field is positive (> 0).
func (cv *ConfigValidator) PositiveFloat(field string, value float64) *ConfigValidator {
	if !(value > 0) {
		cv.add(field, "value %v must be positive", value)
	}
	return cv
}

// RangeFloat validates that a float field is within [min, max].
func (cv *ConfigValidator) RangeFloat(field string, value, min, max float64) *ConfigValidator {
	if !(value >= min && value <= max) {
		cv.add(field, "value %v is outside range [%v, %v]", value, min, max)
	}
	return cv
}

// OneOf validates that a string field is one of the allowed values.
func (cv *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	for _, a := range allowed {
		if value == a {
			return cv
		}
	}
	cv.add(field, "value %q must be one of %v", value, allowed)
	return cv
}

// Custom applies a custom validation function.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %w", cv.name, field, err))
	}
	return cv
}

// When conditionally applies validations if the condition is true.
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// Validate returns all collected errors joined, wrapped in ErrInvalidInput,
// or nil.
func (cv *ConfigValidator) Validate() error {
	if len(cv.errors) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(cv.errors...))
}

// DefaultOr returns the value if it's non-zero, otherwise returns the default.
func DefaultOr[T comparable](value, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
