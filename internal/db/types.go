package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/code-reviewer/internal/pipeline"
)

// Run represents a review run record
type Run struct {
	ID            uuid.UUID     `json:"id"`
	ArtifactName  string        `json:"artifact_name"`
	Status        string        `json:"status"`
	PersistedRole *string       `json:"persisted_role,omitempty"`
	FinalText     *string       `json:"final_text,omitempty"`
	ErrorMessage  *string       `json:"error_message,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	Stages        []StageResult `json:"stages,omitempty"`
}

// StageResult represents one stage row of a review run
type StageResult struct {
	RunID        uuid.UUID `json:"run_id"`
	Ordinal      int       `json:"ordinal"`
	Role         string    `json:"role"`
	Model        string    `json:"model,omitempty"`
	Success      bool      `json:"success"`
	Output       *string   `json:"output,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
}

// RunFilters holds optional filters for listing runs
type RunFilters struct {
	ArtifactName string
	Status       string
	Limit        int
}

// DefaultListLimit caps ListRuns when no limit is given
const DefaultListLimit = 50

// fromPipelineRun converts an in-memory run to its ledger rows.
func fromPipelineRun(run *pipeline.Run) (Run, []StageResult) {
	row := Run{
		ID:           run.ID,
		ArtifactName: run.Artifact.Name,
		Status:       string(run.Status),
		StartedAt:    run.StartedAt,
	}
	if run.Status == pipeline.RunStatusCompleted {
		row.PersistedRole = stringPtr(string(run.PersistedRole))
		row.FinalText = stringPtr(run.FinalText)
	}
	if run.Err != nil {
		row.ErrorMessage = stringPtr(run.Err.Error())
	}
	if !run.CompletedAt.IsZero() {
		completed := run.CompletedAt
		row.CompletedAt = &completed
	}

	stages := make([]StageResult, 0, len(run.Results))
	for i, res := range run.Results {
		s := StageResult{
			RunID:      run.ID,
			Ordinal:    i,
			Role:       string(res.Role),
			Model:      res.Model,
			Success:    res.Success,
			DurationMs: res.Duration.Milliseconds(),
		}
		if res.Output != "" {
			s.Output = stringPtr(res.Output)
		}
		if res.Err != nil {
			s.ErrorMessage = stringPtr(res.Err.Error())
		}
		stages = append(stages, s)
	}
	return row, stages
}

func stringPtr(s string) *string {
	return &s
}
