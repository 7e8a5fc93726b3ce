package validation

import (
	"fmt"

	gferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
)

// Number is the set of numeric kinds the range checks accept.
type Number interface {
	~int | ~int32 | ~int64 | ~float64
}

// ValidatePositive rejects values that are zero or negative.
func ValidatePositive[N Number](module, field string, value N) error {
	if value > 0 {
		return nil
	}
	return gferrors.NewValidationError(module, field, value, "must be positive").
		WithHint("value must be greater than 0")
}

// ValidateNonNegative rejects negative values. Zero passes, which callers
// use to mean "disabled" or "unlimited".
func ValidateNonNegative[N Number](module, field string, value N) error {
	if value >= 0 {
		return nil
	}
	return gferrors.NewValidationError(module, field, value, "cannot be negative").
		WithHint("use 0 or a positive value")
}

// ValidateNotEmpty rejects the empty string. Whitespace is accepted.
func ValidateNotEmpty(module, field, value string) error {
	if value != "" {
		return nil
	}
	return gferrors.NewValidationError(module, field, value, "cannot be empty").
		WithHint("provide a non-empty " + field)
}

// ValidateMaxLength rejects strings longer than limit bytes.
func ValidateMaxLength(module, field, value string, limit int) error {
	if len(value) <= limit {
		return nil
	}
	return gferrors.NewValidationError(module, field, value,
		fmt.Sprintf("longer than %d characters", limit))
}
