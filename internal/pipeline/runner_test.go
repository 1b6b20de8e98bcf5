package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/code-reviewer/internal/llm"
)

func TestStageRunner_Success(t *testing.T) {
	obs := &recordingObserver{}
	runner := NewStageRunner(obs)
	stage := Stage{Role: RoleBuild, Capability: llm.NewEchoStub("codestral"), Prompt: testPrompt}

	result := runner.Run(context.Background(), stage, "X", Position{Artifact: "App.tsx", Index: 0, Total: 4})

	assert.True(t, result.Success)
	assert.Equal(t, "REVIEWED:PROMPT(build,X)", result.Output)
	assert.Equal(t, "codestral", result.Model)
	assert.NoError(t, result.Err)

	assert.Equal(t, []EventKind{EventStarted, EventCompleted}, obs.kinds())
	done := obs.events[1]
	assert.Equal(t, "App.tsx", done.Artifact)
	assert.Equal(t, RoleBuild, done.Stage)
	assert.Equal(t, len(result.Output), done.Chars)
	assert.Equal(t, 4, done.Total)
}

func TestStageRunner_Failure(t *testing.T) {
	obs := &recordingObserver{}
	runner := NewStageRunner(obs)
	stage := failingStage(RoleDesign, errors.New("model unreachable"))

	result := runner.Run(context.Background(), stage, "X", Position{Artifact: "a", Index: 2, Total: 4})

	assert.False(t, result.Success)
	assert.Empty(t, result.Output)
	require.Error(t, result.Err)
	assert.Equal(t, []EventKind{EventStarted, EventFailed}, obs.kinds())
	assert.Contains(t, obs.events[1].Message, "model unreachable")
}

func TestStageRunner_BlankResponseFails(t *testing.T) {
	runner := NewStageRunner(nil)
	stage := Stage{
		Role:       RoleBoss,
		Capability: llm.NewStub("m", func(string) (string, error) { return " \n\t", nil }),
	}

	result := runner.Run(context.Background(), stage, "X", Position{})

	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, llm.ErrEmptyResponse))
}

func TestStageRunner_NoCapability(t *testing.T) {
	result := NewStageRunner(nil).Run(context.Background(), Stage{Role: RoleBuild}, "X", Position{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Err.Error(), "no capability")
}

func TestStageRunner_DefaultPromptUsesTemplates(t *testing.T) {
	stub := llm.NewEchoStub("m")
	stage := Stage{Role: RoleSyntax, Capability: stub}

	result := NewStageRunner(nil).Run(context.Background(), stage, "const x = 1;;", Position{})
	require.True(t, result.Success)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, BuildPrompt(RoleSyntax, "const x = 1;;"), calls[0])
	assert.Contains(t, calls[0], "const x = 1;;")
}

func TestMultiObserver(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	var count int
	multi := MultiObserver{a, nil, b, ObserverFunc(func(ProgressEvent) { count++ })}

	multi.OnProgress(ProgressEvent{Event: EventStarted})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Equal(t, 1, count)
}
