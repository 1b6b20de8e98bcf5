package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/code-reviewer/internal/llm"
)

// Position locates a stage invocation within a run, for progress reporting.
type Position struct {
	RunID    string
	Artifact string
	Index    int
	Total    int
}

// StageRunner invokes one stage's capability and reports what happened.
// It never retries.
type StageRunner struct {
	observer Observer
	now      func() time.Time
}

// NewStageRunner creates a runner that reports to observer (nil discards events).
func NewStageRunner(observer Observer) *StageRunner {
	if observer == nil {
		observer = nopObserver{}
	}
	return &StageRunner{observer: observer, now: time.Now}
}

// Run builds the stage prompt from input, invokes the capability and returns
// the result. A blank response counts as a failure.
func (r *StageRunner) Run(ctx context.Context, stage Stage, input string, pos Position) StageResult {
	model := ""
	if stage.Capability != nil {
		model = stage.Capability.Model()
	}
	event := ProgressEvent{
		RunID:    pos.RunID,
		Artifact: pos.Artifact,
		Stage:    stage.Role,
		Model:    model,
		Index:    pos.Index,
		Total:    pos.Total,
	}

	event.Event = EventStarted
	event.Message = fmt.Sprintf("Stage %d/%d: %s reviewing %s", pos.Index+1, pos.Total, stage.Role, pos.Artifact)
	r.observer.OnProgress(event)

	start := r.now()
	output, err := r.invoke(ctx, stage, input)
	result := StageResult{
		Role:     stage.Role,
		Model:    model,
		Duration: r.now().Sub(start),
	}

	if err != nil {
		result.Err = err
		event.Event = EventFailed
		event.Message = err.Error()
		r.observer.OnProgress(event)
		return result
	}

	result.Success = true
	result.Output = output
	event.Event = EventCompleted
	event.Chars = len([]rune(output))
	event.Message = fmt.Sprintf("%s produced %d characters", stage.Role, event.Chars)
	event.Content = output
	r.observer.OnProgress(event)
	return result
}

func (r *StageRunner) invoke(ctx context.Context, stage Stage, input string) (string, error) {
	if stage.Capability == nil {
		return "", fmt.Errorf("no capability bound to stage %s", stage.Role)
	}
	output, err := stage.Capability.Invoke(ctx, stage.prompt(input))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(output) == "" {
		return "", &llm.CallError{Model: stage.Capability.Model(), Message: "unusable response", Cause: llm.ErrEmptyResponse}
	}
	return output, nil
}
