//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// ReviewRequest is the body of POST /review and POST /review/stream.
type ReviewRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=255"`
	Code    string `json:"code"`
	Persist bool   `json:"persist,omitempty"`
}

// Validate validates the ReviewRequest using the validator.
func (r *ReviewRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// StageSummary is the API view of one stage result.
type StageSummary struct {
	Role       string `json:"role"`
	Model      string `json:"model,omitempty"`
	Success    bool   `json:"success"`
	Chars      int    `json:"chars"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// ReviewResponse is the API view of a finished run.
type ReviewResponse struct {
	RunID         string         `json:"run_id"`
	Name          string         `json:"name"`
	Status        string         `json:"status"`
	Stages        []StageSummary `json:"stages"`
	PersistedRole string         `json:"persisted_role,omitempty"`
	FinalText     string         `json:"final_text,omitempty"`
	OutputName    string         `json:"output_name,omitempty"`
	Error         string         `json:"error,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   time.Time      `json:"completed_at"`
}
