package estimate

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is returned when a quantity, price, percentage or misc
// cost is outside its accepted range.
var ErrInvalidParameter = errors.New("invalid parameter")

// ParameterError describes which input was rejected.
type ParameterError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s: %s=%s %s", ErrInvalidParameter, e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidParameter.
func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

func invalid(field, value, reason string) error {
	return &ParameterError{Field: field, Value: value, Reason: reason}
}
