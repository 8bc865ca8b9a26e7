package cohort

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when the study window cannot be constructed.
var ErrInvalidConfig = errors.New("invalid cohort configuration")

// ConfigError describes which construction parameter was rejected.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s=%v: %s", ErrInvalidConfig, e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
