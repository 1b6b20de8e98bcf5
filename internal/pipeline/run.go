// Package pipeline sequences the reviewer stages: each stage's output becomes
// the next stage's input, and one designated stage's output is persisted.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/code-reviewer/internal/prompts"
	"github.com/jonathan/code-reviewer/internal/types"
)

// LastStage selects the final stage as the persisted one.
const LastStage = -1

// Recorder persists finished runs (for example a database ledger).
type Recorder interface {
	RecordRun(ctx context.Context, run *Run) error
}

// Controller owns the fixed, ordered stage list and drives runs through it.
type Controller struct {
	stages      []Stage
	persisted   int
	observer    Observer
	recorder    Recorder
	postProcess func(string) string
	concurrency int
	logOut      io.Writer
	now         func() time.Time
}

// Option customizes a Controller during construction.
type Option func(*Controller)

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// WithPersistedStage selects which stage's output becomes the artifact.
// Stages after it are informational only. LastStage selects the final stage.
func WithPersistedStage(index int) Option {
	return func(c *Controller) {
		c.persisted = index
	}
}

// WithRecorder sets the run ledger.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithPostProcess transforms the persisted text before it is returned.
func WithPostProcess(fn func(string) string) Option {
	return func(c *Controller) {
		c.postProcess = fn
	}
}

// WithConcurrency sets how many targets ProcessTargets may run at once.
func WithConcurrency(n int) Option {
	return func(c *Controller) {
		c.concurrency = n
	}
}

// WithLogOutput sets where warnings are written (defaults to stderr).
func WithLogOutput(w io.Writer) Option {
	return func(c *Controller) {
		c.logOut = w
	}
}

// NewController validates the stage list and returns a controller. Unless
// WithPersistedStage says otherwise, the next-to-last stage is persisted and
// the last stage's output is treated as a report.
func NewController(stages []Stage, opts ...Option) (*Controller, error) {
	c := &Controller{
		stages:      append([]Stage(nil), stages...),
		persisted:   len(stages) - 2,
		observer:    nopObserver{},
		concurrency: 1,
		logOut:      os.Stderr,
		now:         time.Now,
	}
	if len(stages) == 1 {
		c.persisted = 0
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.persisted == LastStage {
		c.persisted = len(stages) - 1
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the stage configuration.
func (c *Controller) Validate() error {
	if len(c.stages) == 0 {
		return ErrNoStages
	}
	seen := make(map[Role]bool, len(c.stages))
	var templated []string
	for i, s := range c.stages {
		if s.Role == "" {
			return &ConfigError{Message: fmt.Sprintf("stage %d has no role", i+1)}
		}
		if s.Capability == nil {
			return &ConfigError{Message: fmt.Sprintf("stage %s has no capability", s.Role)}
		}
		if seen[s.Role] {
			return &ConfigError{Message: fmt.Sprintf("duplicate stage role %s", s.Role)}
		}
		seen[s.Role] = true
		if s.Prompt == nil {
			templated = append(templated, string(s.Role))
		}
	}
	// Stages on the embedded templates must not fall back to the generic one
	if err := prompts.CheckRoles(templated...); err != nil {
		return &ConfigError{Message: err.Error()}
	}
	if c.persisted < 0 || c.persisted >= len(c.stages) {
		return &ConfigError{Message: fmt.Sprintf("persisted stage index %d out of range [0,%d)", c.persisted, len(c.stages))}
	}
	if c.concurrency < 1 {
		return &ConfigError{Message: "concurrency must be at least 1"}
	}
	return nil
}

// Stages returns a copy of the configured stages.
func (c *Controller) Stages() []Stage {
	return append([]Stage(nil), c.stages...)
}

// PersistedStage returns the index and role of the stage whose output is persisted.
func (c *Controller) PersistedStage() (int, Role) {
	return c.persisted, c.stages[c.persisted].Role
}

// Process runs every stage in order against art. The first failing stage
// aborts the run with a *StageError; the returned Run always holds the results
// gathered so far. Cancellation is honoured between stages only.
func (c *Controller) Process(ctx context.Context, art types.Artifact) (*Run, error) {
	run := &Run{
		ID:        uuid.New(),
		Artifact:  art,
		Results:   make([]StageResult, 0, len(c.stages)),
		Status:    RunStatusRunning,
		StartedAt: c.now(),
	}
	runner := &StageRunner{observer: c.observer, now: c.now}

	current := art.Body
	for i, stage := range c.stages {
		pos := Position{
			RunID:    run.ID.String(),
			Artifact: art.Name,
			Index:    i,
			Total:    len(c.stages),
		}
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("run canceled before stage %s: %w", stage.Role, err)
			c.observer.OnProgress(ProgressEvent{
				RunID:    pos.RunID,
				Artifact: pos.Artifact,
				Stage:    stage.Role,
				Index:    pos.Index,
				Total:    pos.Total,
				Event:    EventFailed,
				Message:  err.Error(),
			})
			return c.finish(ctx, run, err)
		}

		result := runner.Run(ctx, stage, current, pos)
		run.Results = append(run.Results, result)

		if !result.Success {
			return c.finish(ctx, run, &StageError{Role: stage.Role, Index: i, Cause: result.Err})
		}
		current = result.Output
	}

	final := run.Results[c.persisted].Output
	if c.postProcess != nil {
		final = c.postProcess(final)
	}
	run.FinalText = final
	run.PersistedRole = c.stages[c.persisted].Role
	return c.finish(ctx, run, nil)
}

// finish stamps the run, records it, and returns err unchanged.
func (c *Controller) finish(ctx context.Context, run *Run, err error) (*Run, error) {
	run.CompletedAt = c.now()
	run.Err = err
	if err != nil {
		run.Status = RunStatusFailed
	} else {
		run.Status = RunStatusCompleted
	}

	if c.recorder != nil {
		// Canceled runs are still recorded.
		if recErr := c.recorder.RecordRun(context.WithoutCancel(ctx), run); recErr != nil {
			_, _ = fmt.Fprintf(c.logOut, "Warning: failed to record run %s: %v\n", run.ID, recErr)
		}
	}
	return run, err
}
