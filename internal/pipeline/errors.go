package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoStages is returned when a controller is configured without stages.
var ErrNoStages = errors.New("pipeline has no stages")

// StageError identifies the stage whose capability call failed
type StageError struct {
	Role  Role
	Index int
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s) failed: %v", e.Index+1, e.Role, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// ConfigError represents an invalid stage configuration
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pipeline config error: %s", e.Message)
}
