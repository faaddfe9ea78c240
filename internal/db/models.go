package db

import (
	"database/sql"
	"time"
)

type Activity struct {
	ActivityID      int64
	Name            sql.NullString
	ActivityType    sql.NullString
	SportType       sql.NullString
	StartTimeLocal  sql.NullTime
	StartTimeGmt    sql.NullTime
	DurationMinutes sql.NullFloat64
	MovingMinutes   sql.NullFloat64
	DistanceKm      sql.NullFloat64
	DistanceMi      sql.NullFloat64
	AvgSpeedMph     sql.NullFloat64
	AvgHr           sql.NullFloat64
	MaxHr           sql.NullFloat64
	Steps           sql.NullInt64
	Calories        sql.NullFloat64
	CaloriesPerMin  sql.NullFloat64
	Parent          int64
	RunID           string
	CreatedAt       sql.NullTime
	UpdatedAt       sql.NullTime
}

type HrZoneTime struct {
	ActivityID int64
	ZoneNumber int64
	TimeMs     float64
}

type PipelineRun struct {
	ID           string
	Source       string
	Output       sql.NullString
	Status       string
	RowCount     int64
	ColumnCount  int64
	SkippedCount int64
	Error        sql.NullString
	StartedAt    time.Time
	FinishedAt   sql.NullTime
}
