package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a model answers with no usable text.
var ErrEmptyResponse = errors.New("empty response from model")

// CallError represents a failed capability invocation (unreachable, timeout, bad response)
type CallError struct {
	Model   string
	Message string
	Cause   error
}

func (e *CallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm call to %s failed: %s: %v", e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("llm call to %s failed: %s", e.Model, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Cause
}
