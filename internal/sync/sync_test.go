package sync

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/joshdurbin/activity-export/internal/db"
	"github.com/joshdurbin/activity-export/internal/table"
)

func testTable(t *testing.T) *table.Table {
	t.Helper()
	start := time.Date(2025, 6, 2, 7, 30, 0, 0, time.UTC)
	tbl, err := table.FromColumns(
		table.NewColumn("activityId", []any{int64(101), int64(102), nil}),
		table.NewColumn("name", []any{"Morning Run", "Lunch Ride", "Orphan"}),
		table.NewColumn("sportType", []any{"RUNNING", "MULTISPORT", "RUNNING"}),
		table.NewColumn("start_time_local", []any{start, start.AddDate(0, 0, 1), nil}),
		table.NewColumn("duration_minutes", []any{30.0, 60.0, 10.0}),
		table.NewColumn("distance_mi", []any{3.1, nil, 1.0}),
		table.NewColumn("steps", []any{int64(4200), nil, nil}),
		table.NewColumn("parent", []any{false, true, nil}),
		table.NewColumn("hrTimeInZone_2", []any{int64(120000), nil, nil}),
		table.NewColumn("hrTimeInZone_1", []any{60000.0, int64(30000), nil}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "activities.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

func TestConvertRowToParams(t *testing.T) {
	tbl := testTable(t)

	params, ok := ConvertRowToParams(tbl, 0, "run-1")
	if !ok {
		t.Fatal("expected row 0 to convert")
	}
	if params.ActivityID != 101 {
		t.Errorf("expected activity id 101, got %d", params.ActivityID)
	}
	if !params.Name.Valid || params.Name.String != "Morning Run" {
		t.Errorf("expected name 'Morning Run', got %+v", params.Name)
	}
	if !params.DistanceMi.Valid || params.DistanceMi.Float64 != 3.1 {
		t.Errorf("expected distance 3.1, got %+v", params.DistanceMi)
	}
	if !params.Steps.Valid || params.Steps.Int64 != 4200 {
		t.Errorf("expected steps 4200, got %+v", params.Steps)
	}
	if !params.StartTimeLocal.Valid || params.StartTimeLocal.Time.Hour() != 7 {
		t.Errorf("expected start time, got %+v", params.StartTimeLocal)
	}
	if params.Parent != 0 {
		t.Errorf("expected parent 0, got %d", params.Parent)
	}
	if params.RunID != "run-1" {
		t.Errorf("expected run id run-1, got %s", params.RunID)
	}
}

func TestConvertRowToParams_MissingValues(t *testing.T) {
	tbl := testTable(t)

	params, ok := ConvertRowToParams(tbl, 1, "run-1")
	if !ok {
		t.Fatal("expected row 1 to convert")
	}
	if params.DistanceMi.Valid {
		t.Error("expected distance to be invalid for null")
	}
	if params.Steps.Valid {
		t.Error("expected steps to be invalid for null")
	}
	if params.AvgHr.Valid {
		t.Error("expected avg hr to be invalid for a missing column")
	}
	if params.Parent != 1 {
		t.Errorf("expected parent 1, got %d", params.Parent)
	}

	if _, ok := ConvertRowToParams(tbl, 2, "run-1"); ok {
		t.Error("expected row without activity id to be skipped")
	}
}

func TestConvertZoneTimes(t *testing.T) {
	tbl := testTable(t)
	zones := []string{"hrTimeInZone_1", "hrTimeInZone_2"}

	got := ConvertZoneTimes(tbl, 0, 101, zones)
	if len(got) != 2 {
		t.Fatalf("expected 2 zone times, got %d", len(got))
	}
	if got[0].ZoneNumber != 1 || got[0].TimeMs != 60000 {
		t.Errorf("unexpected zone 1: %+v", got[0])
	}
	if got[1].ZoneNumber != 2 || got[1].TimeMs != 120000 {
		t.Errorf("unexpected zone 2: %+v", got[1])
	}

	if got := ConvertZoneTimes(tbl, 1, 102, zones); len(got) != 1 {
		t.Errorf("expected null zones to be skipped, got %+v", got)
	}
}

func TestToNullFloat64(t *testing.T) {
	tests := []struct {
		input    any
		expected sql.NullFloat64
	}{
		{nil, sql.NullFloat64{}},
		{"12", sql.NullFloat64{}},
		{int64(0), sql.NullFloat64{Float64: 0, Valid: true}},
		{123.45, sql.NullFloat64{Float64: 123.45, Valid: true}},
	}

	for _, tt := range tests {
		result := toNullFloat64(tt.input)
		if result != tt.expected {
			t.Errorf("toNullFloat64(%v) = %+v, want %+v", tt.input, result, tt.expected)
		}
	}
}

func TestToNullString(t *testing.T) {
	tests := []struct {
		input    any
		expected sql.NullString
	}{
		{nil, sql.NullString{}},
		{"", sql.NullString{}},
		{"Run", sql.NullString{String: "Run", Valid: true}},
		{true, sql.NullString{String: "True", Valid: true}},
		{map[string]any{"typeKey": "running"}, sql.NullString{String: `{"typeKey":"running"}`, Valid: true}},
	}

	for _, tt := range tests {
		result := toNullString(tt.input)
		if result != tt.expected {
			t.Errorf("toNullString(%v) = %+v, want %+v", tt.input, result, tt.expected)
		}
	}
}

func TestToNullTime(t *testing.T) {
	validTime := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	result := toNullTime(validTime)
	if !result.Valid || !result.Time.Equal(validTime) {
		t.Errorf("expected valid time %v, got %+v", validTime, result)
	}

	if toNullTime(time.Time{}).Valid {
		t.Error("expected invalid time for zero value")
	}
	if toNullTime("2024-01-15").Valid {
		t.Error("expected invalid time for a string")
	}
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		input    interface{}
		expected string
	}{
		{nil, "unknown"},
		{"2024-01-15", "2024-01-15"},
		{[]byte("2024-01-15"), "2024-01-15"},
		{ts, "2024-01-15T08:00:00Z"},
		{sql.NullTime{}, "unknown"},
		{42, "unknown"},
	}

	for _, tt := range tests {
		if got := formatDate(tt.input); got != tt.expected {
			t.Errorf("formatDate(%v) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	service := NewService(sqlDB)

	var saveCalls int
	res, err := service.Save(ctx, testTable(t), RunInfo{Source: "export.json", Output: "clean.csv"},
		func(current, total int, activityName string) {
			saveCalls++
		},
	)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if res.Saved != 2 || res.Skipped != 1 {
		t.Errorf("expected 2 saved and 1 skipped, got %+v", res)
	}
	if saveCalls != 2 {
		t.Errorf("expected 2 save callbacks, got %d", saveCalls)
	}

	queries := db.New(sqlDB)
	count, err := queries.CountActivities(ctx)
	if err != nil {
		t.Fatalf("failed to count activities: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 activities in database, got %d", count)
	}

	activity, err := queries.GetActivity(ctx, 101)
	if err != nil {
		t.Fatalf("failed to get activity: %v", err)
	}
	if activity.Name.String != "Morning Run" {
		t.Errorf("expected activity name 'Morning Run', got '%s'", activity.Name.String)
	}
	if !activity.StartTimeLocal.Valid || activity.StartTimeLocal.Time.Year() != 2025 {
		t.Errorf("expected start time to round trip, got %+v", activity.StartTimeLocal)
	}

	zones, err := queries.ListZoneTimes(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list zone times: %v", err)
	}
	if len(zones) != 3 {
		t.Errorf("expected 3 zone times, got %d", len(zones))
	}

	run, err := queries.GetLatestPipelineRun(ctx)
	if err != nil {
		t.Fatalf("failed to get pipeline run: %v", err)
	}
	if run.ID != res.RunID || run.Status != db.RunStatusSucceeded {
		t.Errorf("unexpected pipeline run %+v", run)
	}
	if run.RowCount != 2 || run.SkippedCount != 1 || run.ColumnCount != 10 {
		t.Errorf("unexpected pipeline run counts %+v", run)
	}
	if !run.FinishedAt.Valid {
		t.Error("expected finished_at to be set")
	}
}

func TestSaveReplacesPreviousRun(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	service := NewService(sqlDB)

	if _, err := service.Save(ctx, testTable(t), RunInfo{Source: "first.json"}, nil); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	second, err := table.FromColumns(
		table.NewColumn("activityId", []any{int64(101)}),
		table.NewColumn("name", []any{"Renamed Run"}),
	)
	if err != nil {
		t.Fatal(err)
	}

	res, err := service.Save(ctx, second, RunInfo{Source: "second.json"}, nil)
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if res.Removed != 1 {
		t.Errorf("expected 1 stale activity removed, got %d", res.Removed)
	}

	queries := db.New(sqlDB)
	activities, err := queries.ListActivities(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list activities: %v", err)
	}
	if len(activities) != 1 || activities[0].Name.String != "Renamed Run" {
		t.Errorf("expected only the renamed activity, got %+v", activities)
	}

	zones, err := queries.ListZoneTimes(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list zone times: %v", err)
	}
	if len(zones) != 0 {
		t.Errorf("expected stale zone times to be removed, got %+v", zones)
	}
}

func TestRecordFailure(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	service := NewService(sqlDB)

	id, err := service.RecordFailure(ctx, RunInfo{Source: "missing.json"}, errors.New("source export not found"))
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}

	run, err := db.New(sqlDB).GetLatestPipelineRun(ctx)
	if err != nil {
		t.Fatalf("failed to get pipeline run: %v", err)
	}
	if run.ID != id || run.Status != db.RunStatusFailed {
		t.Errorf("unexpected pipeline run %+v", run)
	}
	if run.Error.String != "source export not found" {
		t.Errorf("expected error to be recorded, got %+v", run.Error)
	}
}
