// Package db provides PostgreSQL storage for the review run ledger.
package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/code-reviewer/internal/pipeline"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the ledger tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// RecordRun stores a finished run and its stage results, replacing any
// earlier record with the same ID. It implements pipeline.Recorder.
func (db *DB) RecordRun(ctx context.Context, run *pipeline.Run) error {
	if run == nil {
		return fmt.Errorf("run is nil")
	}
	row, stages := fromPipelineRun(run)

	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO review_runs (id, artifact_name, status, persisted_role, final_text, error_message, started_at, completed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO UPDATE SET status = $3, persisted_role = $4, final_text = $5,
			     error_message = $6, completed_at = $8`,
			row.ID, row.ArtifactName, row.Status, row.PersistedRole, row.FinalText,
			row.ErrorMessage, row.StartedAt, row.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save run %s: %w", row.ID, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM review_stage_results WHERE run_id = $1`, row.ID); err != nil {
			return fmt.Errorf("failed to clear stage results: %w", err)
		}

		for _, s := range stages {
			_, err := tx.Exec(ctx,
				`INSERT INTO review_stage_results (run_id, ordinal, role, model, success, output, error_message, duration_ms)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				s.RunID, s.Ordinal, s.Role, s.Model, s.Success, s.Output, s.ErrorMessage, s.DurationMs,
			)
			if err != nil {
				return fmt.Errorf("failed to save stage %s: %w", s.Role, err)
			}
		}
		return nil
	})
}

// GetRun retrieves a review run and its stages by ID
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, artifact_name, status, persisted_role, final_text, error_message, started_at, completed_at, created_at
		 FROM review_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.ArtifactName, &run.Status, &run.PersistedRole, &run.FinalText,
		&run.ErrorMessage, &run.StartedAt, &run.CompletedAt, &run.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	stages, err := db.ListStageResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Stages = stages
	return &run, nil
}

// ListStageResults retrieves the stage rows of a run in execution order
func (db *DB) ListStageResults(ctx context.Context, runID uuid.UUID) ([]StageResult, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT run_id, ordinal, role, COALESCE(model, ''), success, output, error_message, duration_ms
		 FROM review_stage_results WHERE run_id = $1 ORDER BY ordinal`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage results: %w", err)
	}
	defer rows.Close()

	var stages []StageResult
	for rows.Next() {
		var s StageResult
		if err := rows.Scan(&s.RunID, &s.Ordinal, &s.Role, &s.Model, &s.Success, &s.Output, &s.ErrorMessage, &s.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan stage result: %w", err)
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// ListRuns retrieves recent runs with optional filters. Stage rows are not loaded.
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	query, args := buildListRunsQuery(filters)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.ArtifactName, &run.Status, &run.PersistedRole, &run.FinalText,
			&run.ErrorMessage, &run.StartedAt, &run.CompletedAt, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its stage rows
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM review_runs WHERE id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

func buildListRunsQuery(filters RunFilters) (string, []any) {
	if filters.Limit <= 0 {
		filters.Limit = DefaultListLimit
	}

	query := `SELECT id, artifact_name, status, persisted_role, final_text, error_message, started_at, completed_at, created_at
		FROM review_runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.ArtifactName != "" {
		query += fmt.Sprintf(" AND artifact_name = $%d", argNum)
		args = append(args, filters.ArtifactName)
		argNum++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)
	return query, args
}

var _ pipeline.Recorder = (*DB)(nil)
