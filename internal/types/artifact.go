// Package types provides type definitions for structured data used throughout the review pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Artifact is a named text payload. Values are never edited in place: each
// pipeline stage produces a new body.
type Artifact struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// Len returns the body length in characters.
func (a Artifact) Len() int {
	return len([]rune(a.Body))
}
