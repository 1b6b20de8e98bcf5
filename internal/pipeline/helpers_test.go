package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonathan/code-reviewer/internal/artifact"
	"github.com/jonathan/code-reviewer/internal/llm"
	"github.com/jonathan/code-reviewer/internal/types"
)

// testPrompt renders PROMPT(role,input) so outputs are easy to predict.
func testPrompt(role Role, input string) string {
	return fmt.Sprintf("PROMPT(%s,%s)", role, input)
}

// echoStages returns the four default stages backed by "REVIEWED:" echo stubs.
func echoStages() []Stage {
	stages := make([]Stage, 0, 4)
	for _, role := range DefaultRoles() {
		stages = append(stages, Stage{
			Role:       role,
			Capability: llm.NewEchoStub("stub-" + string(role)),
			Prompt:     testPrompt,
		})
	}
	return stages
}

// failingStage returns a stage whose capability always fails.
func failingStage(role Role, err error) Stage {
	return Stage{
		Role: role,
		Capability: llm.NewStub("broken", func(string) (string, error) {
			return "", err
		}),
		Prompt: testPrompt,
	}
}

// recordingObserver collects every event.
type recordingObserver struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recordingObserver) OnProgress(e ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingObserver) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

// memStore is an in-memory Store.
type memStore struct {
	mu       sync.Mutex
	files    map[string]string
	writes   []string
	failOn   map[string]bool
	readErrs map[string]error
}

func newMemStore(files map[string]string) *memStore {
	if files == nil {
		files = map[string]string{}
	}
	return &memStore{files: files, failOn: map[string]bool{}, readErrs: map[string]error{}}
}

func (m *memStore) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

func (m *memStore) Read(name string) (types.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readErrs[name]; err != nil {
		return types.Artifact{}, err
	}
	body, ok := m.files[name]
	if !ok {
		return types.Artifact{}, &artifact.NotFoundError{Name: name}
	}
	return types.Artifact{Name: name, Body: body}, nil
}

func (m *memStore) Write(name, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[name] {
		return "", &artifact.IOError{Op: "write", Name: name, Cause: errors.New("disk full")}
	}
	m.files[name] = text
	m.writes = append(m.writes, name)
	return "/mem/" + name, nil
}

func (m *memStore) DeriveName(name string) string {
	return artifact.DeriveName(artifact.DefaultPrefix, name)
}

func (m *memStore) written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// fakeRecorder captures recorded runs.
type fakeRecorder struct {
	mu   sync.Mutex
	runs []*Run
	err  error
}

func (f *fakeRecorder) RecordRun(_ context.Context, run *Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return f.err
}
