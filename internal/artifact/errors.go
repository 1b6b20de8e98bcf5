package artifact

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by errors.Is for any NotFoundError.
var ErrNotFound = errors.New("artifact not found")

// NotFoundError indicates the name does not resolve to an existing artifact
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("artifact not found: %s", e.Name)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IOError represents a failure of the underlying storage
type IOError struct {
	Op    string
	Name  string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("artifact %s %s: %v", e.Op, e.Name, e.Cause)
}

func (e *IOError) Unwrap() error {
	return e.Cause
}
