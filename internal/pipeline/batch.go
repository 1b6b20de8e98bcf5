package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/code-reviewer/internal/artifact"
	"github.com/jonathan/code-reviewer/internal/types"
)

// Store is the artifact storage the batch reads from and writes to.
type Store interface {
	Exists(name string) bool
	Read(name string) (types.Artifact, error)
	Write(name, text string) (string, error)
	DeriveName(name string) string
}

// OutcomeKind classifies what happened to one target
type OutcomeKind string

// Outcome kinds
const (
	OutcomeWritten         OutcomeKind = "written"
	OutcomeNotFound        OutcomeKind = "not_found"
	OutcomeCapabilityError OutcomeKind = "capability_error"
	OutcomeIOError         OutcomeKind = "io_error"
	OutcomeCanceled        OutcomeKind = "canceled"
)

// Outcome is the result of processing one target
type Outcome struct {
	Target     string
	Kind       OutcomeKind
	Run        *Run
	OutputName string
	OutputPath string
	Err        error
}

// BatchReport holds one outcome per target, in target-list order
type BatchReport struct {
	Outcomes []Outcome
}

// Succeeded returns the number of targets whose artifact was written.
func (b *BatchReport) Succeeded() int {
	return b.count(OutcomeWritten)
}

// Skipped returns the number of targets that did not exist.
func (b *BatchReport) Skipped() int {
	return b.count(OutcomeNotFound)
}

// Failed returns the number of targets that existed but produced no artifact.
func (b *BatchReport) Failed() int {
	return len(b.Outcomes) - b.Succeeded() - b.Skipped()
}

func (b *BatchReport) count(kind OutcomeKind) int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

// ProcessTargets runs the pipeline over every target in order. A failure is
// local to its target: missing targets are skipped, failed runs write nothing,
// and the batch always continues with the next target.
func (c *Controller) ProcessTargets(ctx context.Context, store Store, targets []string) *BatchReport {
	report := &BatchReport{Outcomes: make([]Outcome, len(targets))}

	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for i, target := range targets {
		g.Go(func() error {
			report.Outcomes[i] = c.processTarget(ctx, store, target)
			return nil
		})
	}
	_ = g.Wait()

	return report
}

func (c *Controller) processTarget(ctx context.Context, store Store, target string) Outcome {
	out := Outcome{Target: target}

	if err := ctx.Err(); err != nil {
		out.Kind = OutcomeCanceled
		out.Err = err
		return out
	}

	if !store.Exists(target) {
		out.Kind = OutcomeNotFound
		out.Err = &artifact.NotFoundError{Name: target}
		c.observer.OnProgress(ProgressEvent{
			Artifact: target,
			Event:    EventSkipped,
			Message:  fmt.Sprintf("%s not found, skipping", target),
		})
		return out
	}

	art, err := store.Read(target)
	if err != nil {
		out.Err = err
		if errors.Is(err, artifact.ErrNotFound) {
			out.Kind = OutcomeNotFound
		} else {
			out.Kind = OutcomeIOError
		}
		c.observer.OnProgress(ProgressEvent{Artifact: target, Event: EventSkipped, Message: err.Error()})
		return out
	}

	run, err := c.Process(ctx, art)
	out.Run = run
	if err != nil {
		out.Err = err
		// A per-call timeout leaves ctx intact and stays a capability error
		if ctx.Err() != nil {
			out.Kind = OutcomeCanceled
			return out
		}
		out.Kind = OutcomeCapabilityError
		return out
	}

	out.OutputName = store.DeriveName(target)
	path, err := store.Write(out.OutputName, run.FinalText)
	if err != nil {
		out.Kind = OutcomeIOError
		out.Err = err
		c.observer.OnProgress(ProgressEvent{
			RunID:    run.ID.String(),
			Artifact: target,
			Event:    EventFailed,
			Message:  fmt.Sprintf("failed to write %s: %v", out.OutputName, err),
		})
		return out
	}

	out.Kind = OutcomeWritten
	out.OutputPath = path
	c.observer.OnProgress(ProgressEvent{
		RunID:    run.ID.String(),
		Artifact: target,
		Event:    EventWritten,
		Chars:    len([]rune(run.FinalText)),
		Message:  fmt.Sprintf("%s done, created %s", target, out.OutputName),
	})
	return out
}
