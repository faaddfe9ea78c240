package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "activities.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)

	// a second run finds nothing pending
	if err := Migrate(ctx, sqlDB); err != nil {
		t.Fatalf("re-running migrations: %v", err)
	}

	count, err := New(sqlDB).CountActivities(ctx)
	if err != nil {
		t.Fatalf("failed to count activities: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty database, got %d activities", count)
	}
}

func TestListActivitiesByYear(t *testing.T) {
	ctx := context.Background()
	queries := New(openTestDB(t))

	seed := []struct {
		id    int64
		start time.Time
	}{
		{1, time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC)},
		{2, time.Date(2025, 1, 2, 7, 0, 0, 0, time.UTC)},
		{3, time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC)},
	}
	for _, s := range seed {
		err := queries.CreateActivity(ctx, CreateActivityParams{
			ActivityID:     s.id,
			StartTimeLocal: sql.NullTime{Time: s.start, Valid: true},
			RunID:          "run-1",
		})
		if err != nil {
			t.Fatalf("creating activity %d: %v", s.id, err)
		}
		err = queries.CreateZoneTime(ctx, CreateZoneTimeParams{ActivityID: s.id, ZoneNumber: 1, TimeMs: 60000})
		if err != nil {
			t.Fatalf("creating zone time %d: %v", s.id, err)
		}
	}

	tests := []struct {
		year     int64
		expected []int64
	}{
		{0, []int64{1, 2, 3}},
		{2025, []int64{2, 3}},
		{2024, []int64{1}},
		{2023, nil},
	}
	for _, tt := range tests {
		activities, err := queries.ListActivities(ctx, tt.year)
		if err != nil {
			t.Fatalf("year %d: %v", tt.year, err)
		}
		if len(activities) != len(tt.expected) {
			t.Fatalf("year %d: expected %d activities, got %d", tt.year, len(tt.expected), len(activities))
		}
		for i, a := range activities {
			if a.ActivityID != tt.expected[i] {
				t.Errorf("year %d: expected id %d at %d, got %d", tt.year, tt.expected[i], i, a.ActivityID)
			}
		}

		zones, err := queries.ListZoneTimes(ctx, tt.year)
		if err != nil {
			t.Fatalf("year %d: %v", tt.year, err)
		}
		if len(zones) != len(tt.expected) {
			t.Errorf("year %d: expected %d zone times, got %d", tt.year, len(tt.expected), len(zones))
		}
	}
}

func TestCreateActivityUpserts(t *testing.T) {
	ctx := context.Background()
	queries := New(openTestDB(t))

	for _, name := range []string{"Run", "Renamed"} {
		err := queries.CreateActivity(ctx, CreateActivityParams{
			ActivityID: 7,
			Name:       sql.NullString{String: name, Valid: true},
			RunID:      "run-" + name,
		})
		if err != nil {
			t.Fatalf("creating activity: %v", err)
		}
	}

	a, err := queries.GetActivity(ctx, 7)
	if err != nil {
		t.Fatalf("getting activity: %v", err)
	}
	if a.Name.String != "Renamed" || a.RunID != "run-Renamed" {
		t.Errorf("expected upserted row, got %+v", a)
	}

	removed, err := queries.DeleteActivitiesNotInRun(ctx, "run-Renamed")
	if err != nil || removed != 0 {
		t.Errorf("expected nothing removed, got %d, %v", removed, err)
	}
}

func TestGetLatestPipelineRun(t *testing.T) {
	ctx := context.Background()
	queries := New(openTestDB(t))

	if _, err := queries.GetLatestPipelineRun(ctx); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"older", "newer"} {
		err := queries.CreatePipelineRun(ctx, CreatePipelineRunParams{
			ID:        id,
			Source:    "export.json",
			Status:    RunStatusRunning,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("creating run %s: %v", id, err)
		}
	}

	err := queries.FinishPipelineRun(ctx, FinishPipelineRunParams{
		ID:         "newer",
		Status:     RunStatusSucceeded,
		RowCount:   12,
		FinishedAt: sql.NullTime{Time: base.Add(2 * time.Hour), Valid: true},
	})
	if err != nil {
		t.Fatalf("finishing run: %v", err)
	}

	run, err := queries.GetLatestPipelineRun(ctx)
	if err != nil {
		t.Fatalf("getting latest run: %v", err)
	}
	if run.ID != "newer" || run.Status != RunStatusSucceeded || run.RowCount != 12 {
		t.Errorf("unexpected latest run %+v", run)
	}
}
