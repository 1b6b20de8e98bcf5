//go:build integration

package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/code-reviewer/internal/pipeline"
	"github.com/jonathan/code-reviewer/internal/types"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}
	return db
}

func testRun(status pipeline.RunStatus) *pipeline.Run {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &pipeline.Run{
		ID:            uuid.New(),
		Artifact:      types.Artifact{Name: "it-" + uuid.NewString()[:8] + ".tsx", Body: "x"},
		PersistedRole: pipeline.RoleDesign,
		FinalText:     "final",
		Status:        status,
		StartedAt:     now,
		CompletedAt:   now.Add(time.Second),
		Results: []pipeline.StageResult{
			{Role: pipeline.RoleBuild, Model: "m1", Output: "one", Success: true},
			{Role: pipeline.RoleSyntax, Model: "m2", Output: "two", Success: true},
		},
	}
}

func TestIntegration_RecordRun_RoundTrip(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	run := testRun(pipeline.RunStatusCompleted)
	require.NoError(t, db.RecordRun(ctx, run))
	defer func() { _ = db.DeleteRun(ctx, run.ID) }()

	got, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.Artifact.Name, got.ArtifactName)
	assert.Equal(t, "completed", got.Status)
	require.NotNil(t, got.FinalText)
	assert.Equal(t, "final", *got.FinalText)
	require.Len(t, got.Stages, 2)
	assert.Equal(t, "build", got.Stages[0].Role)
	assert.Equal(t, "syntax", got.Stages[1].Role)
}

func TestIntegration_RecordRun_Replaces(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	run := testRun(pipeline.RunStatusCompleted)
	require.NoError(t, db.RecordRun(ctx, run))
	defer func() { _ = db.DeleteRun(ctx, run.ID) }()

	run.Status = pipeline.RunStatusFailed
	run.Err = errors.New("stage 2 (syntax) failed")
	run.Results = run.Results[:1]
	require.NoError(t, db.RecordRun(ctx, run))

	got, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)
	assert.Len(t, got.Stages, 1)
}

func TestIntegration_ListRuns(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	run := testRun(pipeline.RunStatusFailed)
	require.NoError(t, db.RecordRun(ctx, run))
	defer func() { _ = db.DeleteRun(ctx, run.ID) }()

	runs, err := db.ListRuns(ctx, RunFilters{ArtifactName: run.Artifact.Name})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	runs, err = db.ListRuns(ctx, RunFilters{ArtifactName: run.Artifact.Name, Status: "completed"})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestIntegration_GetRun_NotFound(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	got, err := db.GetRun(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}
