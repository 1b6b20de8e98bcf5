package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/code-reviewer/internal/llm"
	"github.com/jonathan/code-reviewer/internal/prompts"
	"github.com/jonathan/code-reviewer/internal/types"
)

// Role identifies a reviewer stage
type Role string

// Reviewer roles, in pipeline order
const (
	RoleBuild  Role = "build"
	RoleSyntax Role = "syntax"
	RoleDesign Role = "design"
	RoleBoss   Role = "boss"
)

// DefaultRoles returns the reviewer roles in execution order.
func DefaultRoles() []Role {
	return []Role{RoleBuild, RoleSyntax, RoleDesign, RoleBoss}
}

// PromptFunc builds the prompt for a role from the previous stage's output.
type PromptFunc func(role Role, input string) string

// BuildPrompt is the default PromptFunc backed by the embedded templates.
func BuildPrompt(role Role, input string) string {
	return prompts.Build(string(role), input)
}

// Stage binds a role to the capability that reviews for it. Stages are
// configured once and shared read-only across runs.
type Stage struct {
	Role       Role
	Capability llm.Capability
	Prompt     PromptFunc // nil uses the embedded template for Role, which must exist
}

// prompt returns the stage's prompt for input.
func (s Stage) prompt(input string) string {
	if s.Prompt == nil {
		return BuildPrompt(s.Role, input)
	}
	return s.Prompt(s.Role, input)
}

// StageResult is the outcome of one stage on one input text
type StageResult struct {
	Role     Role          `json:"role"`
	Model    string        `json:"model,omitempty"`
	Output   string        `json:"output,omitempty"`
	Success  bool          `json:"success"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// RunStatus is the lifecycle state of a Run
type RunStatus string

// Run status constants
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one execution of the full stage sequence against one artifact.
type Run struct {
	ID            uuid.UUID
	Artifact      types.Artifact
	Results       []StageResult
	FinalText     string
	PersistedRole Role
	Status        RunStatus
	Err           error
	StartedAt     time.Time
	CompletedAt   time.Time
}

// FailedStage returns the result of the stage that failed, or nil.
func (r *Run) FailedStage() *StageResult {
	for i := range r.Results {
		if !r.Results[i].Success {
			return &r.Results[i]
		}
	}
	return nil
}

// Summary converts the run to its API view.
func (r *Run) Summary() types.ReviewResponse {
	resp := types.ReviewResponse{
		RunID:       r.ID.String(),
		Name:        r.Artifact.Name,
		Status:      string(r.Status),
		Stages:      make([]types.StageSummary, 0, len(r.Results)),
		FinalText:   r.FinalText,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
	if r.Status == RunStatusCompleted {
		resp.PersistedRole = string(r.PersistedRole)
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	for _, res := range r.Results {
		s := types.StageSummary{
			Role:       string(res.Role),
			Model:      res.Model,
			Success:    res.Success,
			Chars:      len([]rune(res.Output)),
			DurationMs: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			s.Error = res.Err.Error()
		}
		resp.Stages = append(resp.Stages, s)
	}
	return resp
}
