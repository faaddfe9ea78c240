package db

import (
	"context"
	"database/sql"
)

const createActivity = `-- name: CreateActivity :exec
INSERT INTO activities (
    activity_id, name, activity_type, sport_type, start_time_local, start_time_gmt,
    duration_minutes, moving_minutes, distance_km, distance_mi, avg_speed_mph,
    avg_hr, max_hr, steps, calories, calories_per_min, parent, run_id
) VALUES (
    ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
)
ON CONFLICT(activity_id) DO UPDATE SET
    name = excluded.name,
    activity_type = excluded.activity_type,
    sport_type = excluded.sport_type,
    start_time_local = excluded.start_time_local,
    start_time_gmt = excluded.start_time_gmt,
    duration_minutes = excluded.duration_minutes,
    moving_minutes = excluded.moving_minutes,
    distance_km = excluded.distance_km,
    distance_mi = excluded.distance_mi,
    avg_speed_mph = excluded.avg_speed_mph,
    avg_hr = excluded.avg_hr,
    max_hr = excluded.max_hr,
    steps = excluded.steps,
    calories = excluded.calories,
    calories_per_min = excluded.calories_per_min,
    parent = excluded.parent,
    run_id = excluded.run_id,
    updated_at = CURRENT_TIMESTAMP
`

type CreateActivityParams struct {
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
}

// CreateActivity inserts an activity, replacing any existing row with the same id
func (q *Queries) CreateActivity(ctx context.Context, arg CreateActivityParams) error {
	_, err := q.db.ExecContext(ctx, createActivity,
		arg.ActivityID,
		arg.Name,
		arg.ActivityType,
		arg.SportType,
		arg.StartTimeLocal,
		arg.StartTimeGmt,
		arg.DurationMinutes,
		arg.MovingMinutes,
		arg.DistanceKm,
		arg.DistanceMi,
		arg.AvgSpeedMph,
		arg.AvgHr,
		arg.MaxHr,
		arg.Steps,
		arg.Calories,
		arg.CaloriesPerMin,
		arg.Parent,
		arg.RunID,
	)
	return err
}

const getActivity = `-- name: GetActivity :one
SELECT activity_id, name, activity_type, sport_type, start_time_local, start_time_gmt,
    duration_minutes, moving_minutes, distance_km, distance_mi, avg_speed_mph,
    avg_hr, max_hr, steps, calories, calories_per_min, parent, run_id, created_at, updated_at
FROM activities
WHERE activity_id = ?
`

func (q *Queries) GetActivity(ctx context.Context, activityID int64) (Activity, error) {
	row := q.db.QueryRowContext(ctx, getActivity, activityID)
	var i Activity
	err := scanActivity(row, &i)
	return i, err
}

const listActivities = `-- name: ListActivities :many
SELECT activity_id, name, activity_type, sport_type, start_time_local, start_time_gmt,
    duration_minutes, moving_minutes, distance_km, distance_mi, avg_speed_mph,
    avg_hr, max_hr, steps, calories, calories_per_min, parent, run_id, created_at, updated_at
FROM activities
WHERE ? = 0 OR CAST(strftime('%Y', start_time_local) AS INTEGER) = ?
ORDER BY start_time_local, activity_id
`

// ListActivities returns activities whose local start falls in year, or every activity when year is 0
func (q *Queries) ListActivities(ctx context.Context, year int64) ([]Activity, error) {
	rows, err := q.db.QueryContext(ctx, listActivities, year, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Activity
	for rows.Next() {
		var i Activity
		if err := scanActivity(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanActivity(s scanner, i *Activity) error {
	return s.Scan(
		&i.ActivityID,
		&i.Name,
		&i.ActivityType,
		&i.SportType,
		&i.StartTimeLocal,
		&i.StartTimeGmt,
		&i.DurationMinutes,
		&i.MovingMinutes,
		&i.DistanceKm,
		&i.DistanceMi,
		&i.AvgSpeedMph,
		&i.AvgHr,
		&i.MaxHr,
		&i.Steps,
		&i.Calories,
		&i.CaloriesPerMin,
		&i.Parent,
		&i.RunID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
}

const countActivities = `-- name: CountActivities :one
SELECT COUNT(*) FROM activities
`

func (q *Queries) CountActivities(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countActivities)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getActivityDateRange = `-- name: GetActivityDateRange :one
SELECT MIN(start_time_local) AS oldest, MAX(start_time_local) AS newest FROM activities
`

type GetActivityDateRangeRow struct {
	Oldest interface{}
	Newest interface{}
}

func (q *Queries) GetActivityDateRange(ctx context.Context) (GetActivityDateRangeRow, error) {
	row := q.db.QueryRowContext(ctx, getActivityDateRange)
	var i GetActivityDateRangeRow
	err := row.Scan(&i.Oldest, &i.Newest)
	return i, err
}

const deleteActivitiesNotInRun = `-- name: DeleteActivitiesNotInRun :execrows
DELETE FROM activities WHERE run_id != ?
`

// DeleteActivitiesNotInRun removes activities written by any other run
func (q *Queries) DeleteActivitiesNotInRun(ctx context.Context, runID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteActivitiesNotInRun, runID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createZoneTime = `-- name: CreateZoneTime :exec
INSERT INTO hr_zone_times (activity_id, zone_number, time_ms)
VALUES (?, ?, ?)
ON CONFLICT(activity_id, zone_number) DO UPDATE SET time_ms = excluded.time_ms
`

type CreateZoneTimeParams struct {
	ActivityID int64
	ZoneNumber int64
	TimeMs     float64
}

func (q *Queries) CreateZoneTime(ctx context.Context, arg CreateZoneTimeParams) error {
	_, err := q.db.ExecContext(ctx, createZoneTime, arg.ActivityID, arg.ZoneNumber, arg.TimeMs)
	return err
}

const deleteZoneTimesForActivity = `-- name: DeleteZoneTimesForActivity :exec
DELETE FROM hr_zone_times WHERE activity_id = ?
`

func (q *Queries) DeleteZoneTimesForActivity(ctx context.Context, activityID int64) error {
	_, err := q.db.ExecContext(ctx, deleteZoneTimesForActivity, activityID)
	return err
}

const deleteOrphanZoneTimes = `-- name: DeleteOrphanZoneTimes :execrows
DELETE FROM hr_zone_times
WHERE activity_id NOT IN (SELECT activity_id FROM activities)
`

// DeleteOrphanZoneTimes removes zone rows whose activity no longer exists
func (q *Queries) DeleteOrphanZoneTimes(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteOrphanZoneTimes)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listZoneTimes = `-- name: ListZoneTimes :many
SELECT z.activity_id, z.zone_number, z.time_ms
FROM hr_zone_times z
JOIN activities a ON a.activity_id = z.activity_id
WHERE ? = 0 OR CAST(strftime('%Y', a.start_time_local) AS INTEGER) = ?
ORDER BY z.activity_id, z.zone_number
`

// ListZoneTimes returns zone times for activities in year, or for every activity when year is 0
func (q *Queries) ListZoneTimes(ctx context.Context, year int64) ([]HrZoneTime, error) {
	rows, err := q.db.QueryContext(ctx, listZoneTimes, year, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []HrZoneTime
	for rows.Next() {
		var i HrZoneTime
		if err := rows.Scan(&i.ActivityID, &i.ZoneNumber, &i.TimeMs); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
