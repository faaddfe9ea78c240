// Package sync writes a cleaned activity table into the SQLite cache.
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joshdurbin/activity-export/internal/analysis"
	"github.com/joshdurbin/activity-export/internal/clean"
	"github.com/joshdurbin/activity-export/internal/db"
	"github.com/joshdurbin/activity-export/internal/logging"
	"github.com/joshdurbin/activity-export/internal/table"
)

// Cleaned column names persisted to the activities table
const (
	colActivityID     = "activityId"
	colName           = "name"
	colActivityType   = "activityType"
	colStartTimeGmt   = "start_time_gmt"
	colMovingMinutes  = "moving_minutes"
	colDistanceKm     = "distance_km"
	colAvgSpeedMph    = "avg_speed_mph"
	colSteps          = "steps"
	colCaloriesPerMin = "calories_per_min"
)

// SaveProgressCallback is called after each activity is saved
type SaveProgressCallback func(current, total int, activityName string)

// RunInfo describes the pipeline run being recorded
type RunInfo struct {
	Source string
	Output string
}

// Result summarizes a save
type Result struct {
	RunID   string
	Saved   int
	Skipped int
	Removed int64
}

// Service writes cleaned tables to the database
type Service struct {
	db      *sql.DB
	queries *db.Queries
}

// NewService creates a new sync service
func NewService(sqlDB *sql.DB) *Service {
	return &Service{
		db:      sqlDB,
		queries: db.New(sqlDB),
	}
}

// Save replaces the cached activities with the rows of t inside one
// transaction and records the run. Rows without an activity id are skipped.
func (s *Service) Save(ctx context.Context, t *table.Table, info RunInfo, progress SaveProgressCallback) (Result, error) {
	res := Result{RunID: uuid.NewString()}

	if err := s.queries.CreatePipelineRun(ctx, db.CreatePipelineRunParams{
		ID:        res.RunID,
		Source:    info.Source,
		Output:    toNullString(info.Output),
		Status:    db.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}); err != nil {
		return res, fmt.Errorf("recording pipeline run: %w", err)
	}

	err := s.save(ctx, t, &res, progress)
	if err != nil {
		s.finish(ctx, res, t, err)
		return res, err
	}

	if err := s.finish(ctx, res, t, nil); err != nil {
		return res, err
	}

	logging.Info("saved activities to database",
		"run_id", res.RunID,
		"saved", res.Saved,
		"skipped", res.Skipped,
		"removed", res.Removed)
	return res, nil
}

func (s *Service) save(ctx context.Context, t *table.Table, res *Result, progress SaveProgressCallback) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	q := s.queries.WithTx(tx)
	zones := analysis.ZoneColumns(t)

	for row := 0; row < t.Len(); row++ {
		params, ok := ConvertRowToParams(t, row, res.RunID)
		if !ok {
			res.Skipped++
			logging.Warn("skipping row without activity id", "row", row)
			continue
		}

		if err := q.CreateActivity(ctx, params); err != nil {
			return fmt.Errorf("saving activity %d (%s): %w", params.ActivityID, params.Name.String, err)
		}

		if err := q.DeleteZoneTimesForActivity(ctx, params.ActivityID); err != nil {
			return fmt.Errorf("deleting zone times for activity %d: %w", params.ActivityID, err)
		}
		for _, zt := range ConvertZoneTimes(t, row, params.ActivityID, zones) {
			if err := q.CreateZoneTime(ctx, zt); err != nil {
				return fmt.Errorf("saving zone %d for activity %d: %w", zt.ZoneNumber, params.ActivityID, err)
			}
		}

		res.Saved++
		if progress != nil {
			progress(row+1, t.Len(), params.Name.String)
		}
	}

	removed, err := q.DeleteActivitiesNotInRun(ctx, res.RunID)
	if err != nil {
		return fmt.Errorf("removing stale activities: %w", err)
	}
	res.Removed = removed

	if _, err := q.DeleteOrphanZoneTimes(ctx); err != nil {
		return fmt.Errorf("removing stale zone times: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing activities: %w", err)
	}
	return nil
}

func (s *Service) finish(ctx context.Context, res Result, t *table.Table, cause error) error {
	params := db.FinishPipelineRunParams{
		ID:           res.RunID,
		Status:       db.RunStatusSucceeded,
		RowCount:     int64(res.Saved),
		ColumnCount:  int64(t.Width()),
		SkippedCount: int64(res.Skipped),
		FinishedAt:   toNullTime(time.Now().UTC()),
	}
	if cause != nil {
		params.Status = db.RunStatusFailed
		params.RowCount = 0
		params.Error = toNullString(cause.Error())
	}

	if err := s.queries.FinishPipelineRun(ctx, params); err != nil {
		logging.Warn("failed to record pipeline run result", "run_id", res.RunID, "error", err)
		return fmt.Errorf("recording pipeline run result: %w", err)
	}
	return nil
}

// RecordFailure stores a failed run for a pipeline that stopped before saving
func (s *Service) RecordFailure(ctx context.Context, info RunInfo, cause error) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	if err := s.queries.CreatePipelineRun(ctx, db.CreatePipelineRunParams{
		ID:        id,
		Source:    info.Source,
		Output:    toNullString(info.Output),
		Status:    db.RunStatusFailed,
		StartedAt: now,
	}); err != nil {
		return "", fmt.Errorf("recording pipeline run: %w", err)
	}

	if err := s.queries.FinishPipelineRun(ctx, db.FinishPipelineRunParams{
		ID:         id,
		Status:     db.RunStatusFailed,
		Error:      toNullString(cause.Error()),
		FinishedAt: toNullTime(now),
	}); err != nil {
		return "", fmt.Errorf("recording pipeline run result: %w", err)
	}
	return id, nil
}

// ConvertRowToParams converts one cleaned row to database params. ok is false
// when the row has no usable activity id.
func ConvertRowToParams(t *table.Table, row int, runID string) (db.CreateActivityParams, bool) {
	id, ok := table.Int(t.Value(colActivityID, row))
	if !ok {
		return db.CreateActivityParams{}, false
	}

	var parent int64
	if table.Truthy(t.Value(analysis.ColParent, row)) {
		parent = 1
	}

	return db.CreateActivityParams{
		ActivityID:      id,
		Name:            toNullString(t.Value(colName, row)),
		ActivityType:    toNullString(t.Value(colActivityType, row)),
		SportType:       toNullString(t.Value(analysis.ColSportType, row)),
		StartTimeLocal:  toNullTime(t.Value(analysis.ColStartLocal, row)),
		StartTimeGmt:    toNullTime(t.Value(colStartTimeGmt, row)),
		DurationMinutes: toNullFloat64(t.Value(analysis.ColDuration, row)),
		MovingMinutes:   toNullFloat64(t.Value(colMovingMinutes, row)),
		DistanceKm:      toNullFloat64(t.Value(colDistanceKm, row)),
		DistanceMi:      toNullFloat64(t.Value(analysis.ColDistanceMi, row)),
		AvgSpeedMph:     toNullFloat64(t.Value(colAvgSpeedMph, row)),
		AvgHr:           toNullFloat64(t.Value(analysis.ColAvgHR, row)),
		MaxHr:           toNullFloat64(t.Value(analysis.ColMaxHR, row)),
		Steps:           toNullInt64(t.Value(colSteps, row)),
		Calories:        toNullFloat64(t.Value(analysis.ColCalories, row)),
		CaloriesPerMin:  toNullFloat64(t.Value(colCaloriesPerMin, row)),
		Parent:          parent,
		RunID:           runID,
	}, true
}

// ConvertZoneTimes returns the non-null zone times of one row
func ConvertZoneTimes(t *table.Table, row int, activityID int64, zones []string) []db.CreateZoneTimeParams {
	var out []db.CreateZoneTimeParams
	for _, name := range zones {
		ms, ok := table.Float(t.Value(name, row))
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, analysis.ZonePrefix))
		if err != nil {
			continue
		}
		out = append(out, db.CreateZoneTimeParams{
			ActivityID: activityID,
			ZoneNumber: int64(n),
			TimeMs:     ms,
		})
	}
	return out
}

func toNullFloat64(v any) sql.NullFloat64 {
	f, ok := table.Float(v)
	return sql.NullFloat64{Float64: f, Valid: ok}
}

func toNullInt64(v any) sql.NullInt64 {
	n, ok := table.Int(v)
	return sql.NullInt64{Int64: n, Valid: ok}
}

// toNullString keeps strings as they are and renders other non-null cells the way the CSV does
func toNullString(v any) sql.NullString {
	if table.IsNull(v) {
		return sql.NullString{}
	}
	if s, ok := table.Str(v); ok {
		return sql.NullString{String: s, Valid: s != ""}
	}
	return sql.NullString{String: clean.FormatCell(v), Valid: true}
}

func toNullTime(v any) sql.NullTime {
	ts, ok := table.Time(v)
	return sql.NullTime{Time: ts, Valid: ok && !ts.IsZero()}
}

// LogDatabaseStats logs the size and date span of the cache
func LogDatabaseStats(ctx context.Context, queries *db.Queries) {
	log := logging.Stage("cache")

	count, err := queries.CountActivities(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count activities")
		return
	}

	if count == 0 {
		log.Info().Int64("total_activities", 0).Msg("database statistics")
		return
	}

	span, _ := queries.GetActivityDateRange(ctx)

	log.Info().
		Int64("total_activities", count).
		Str("newest_activity", formatDate(span.Newest)).
		Str("oldest_activity", formatDate(span.Oldest)).
		Msg("database statistics")
}

func formatDate(raw interface{}) string {
	if raw == nil {
		return "unknown"
	}
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case sql.NullTime:
		if v.Valid {
			return v.Time.Format(time.RFC3339)
		}
	case time.Time:
		return v.Format(time.RFC3339)
	}
	return "unknown"
}
