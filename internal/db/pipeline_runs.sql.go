package db

import (
	"context"
	"database/sql"
	"time"
)

// Pipeline run statuses
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

const createPipelineRun = `-- name: CreatePipelineRun :exec
INSERT INTO pipeline_runs (id, source, output, status, started_at)
VALUES (?, ?, ?, ?, ?)
`

type CreatePipelineRunParams struct {
	ID        string
	Source    string
	Output    sql.NullString
	Status    string
	StartedAt time.Time
}

func (q *Queries) CreatePipelineRun(ctx context.Context, arg CreatePipelineRunParams) error {
	_, err := q.db.ExecContext(ctx, createPipelineRun,
		arg.ID,
		arg.Source,
		arg.Output,
		arg.Status,
		arg.StartedAt,
	)
	return err
}

const finishPipelineRun = `-- name: FinishPipelineRun :exec
UPDATE pipeline_runs
SET status = ?, row_count = ?, column_count = ?, skipped_count = ?, error = ?, finished_at = ?
WHERE id = ?
`

type FinishPipelineRunParams struct {
	Status       string
	RowCount     int64
	ColumnCount  int64
	SkippedCount int64
	Error        sql.NullString
	FinishedAt   sql.NullTime
	ID           string
}

func (q *Queries) FinishPipelineRun(ctx context.Context, arg FinishPipelineRunParams) error {
	_, err := q.db.ExecContext(ctx, finishPipelineRun,
		arg.Status,
		arg.RowCount,
		arg.ColumnCount,
		arg.SkippedCount,
		arg.Error,
		arg.FinishedAt,
		arg.ID,
	)
	return err
}

const getLatestPipelineRun = `-- name: GetLatestPipelineRun :one
SELECT id, source, output, status, row_count, column_count, skipped_count, error, started_at, finished_at
FROM pipeline_runs
ORDER BY started_at DESC, rowid DESC
LIMIT 1
`

// GetLatestPipelineRun returns the most recently started run, or sql.ErrNoRows
func (q *Queries) GetLatestPipelineRun(ctx context.Context) (PipelineRun, error) {
	row := q.db.QueryRowContext(ctx, getLatestPipelineRun)
	var i PipelineRun
	err := row.Scan(
		&i.ID,
		&i.Source,
		&i.Output,
		&i.Status,
		&i.RowCount,
		&i.ColumnCount,
		&i.SkippedCount,
		&i.Error,
		&i.StartedAt,
		&i.FinishedAt,
	)
	return i, err
}
