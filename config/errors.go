package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// An Error reports one parameter that violates a constraint.
type Error struct {
	Param  string
	Value  any
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s = %v %s", ErrInvalidConfig, e.Param, e.Value, e.Reason)
}

// Unwrap makes errors.Is(err, ErrInvalidConfig) hold.
func (e *Error) Unwrap() error {
	return ErrInvalidConfig
}
