package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/joshdurbin/activity-export/internal/db"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MockQuerier implements the Querier interface for testing
type MockQuerier struct {
	activities []db.Activity
	zones      []db.HrZoneTime
	runs       []db.PipelineRun
	err        error
}

func (m *MockQuerier) GetActivity(ctx context.Context, activityID int64) (db.Activity, error) {
	if m.err != nil {
		return db.Activity{}, m.err
	}
	for _, a := range m.activities {
		if a.ActivityID == activityID {
			return a, nil
		}
	}
	return db.Activity{}, sql.ErrNoRows
}

func (m *MockQuerier) ListActivities(ctx context.Context, year int64) ([]db.Activity, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []db.Activity
	for _, a := range m.activities {
		if inYear(a, year) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockQuerier) ListZoneTimes(ctx context.Context, year int64) ([]db.HrZoneTime, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []db.HrZoneTime
	for _, z := range m.zones {
		a, err := m.GetActivity(ctx, z.ActivityID)
		if err == nil && inYear(a, year) {
			out = append(out, z)
		}
	}
	return out, nil
}

func (m *MockQuerier) CountActivities(ctx context.Context) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return int64(len(m.activities)), nil
}

func (m *MockQuerier) GetLatestPipelineRun(ctx context.Context) (db.PipelineRun, error) {
	if m.err != nil {
		return db.PipelineRun{}, m.err
	}
	if len(m.runs) == 0 {
		return db.PipelineRun{}, sql.ErrNoRows
	}
	return m.runs[len(m.runs)-1], nil
}

func inYear(a db.Activity, year int64) bool {
	if year == 0 {
		return true
	}
	return a.StartTimeLocal.Valid && int64(a.StartTimeLocal.Time.Year()) == year
}

func validFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func createTestActivity(id int64, sport string, start time.Time, minutes float64) db.Activity {
	return db.Activity{
		ActivityID:      id,
		Name:            sql.NullString{String: sport + " activity", Valid: true},
		SportType:       sql.NullString{String: sport, Valid: true},
		StartTimeLocal:  sql.NullTime{Time: start, Valid: true},
		DurationMinutes: validFloat(minutes),
		RunID:           "run-1",
	}
}

// newTestQuerier returns three 2025 activities, a 2025 multisport container and one 2024 run
func newTestQuerier() *MockQuerier {
	run := createTestActivity(1, "RUNNING", time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC), 30)
	run.DistanceMi = validFloat(3.1)
	run.AvgHr = validFloat(140)
	run.MaxHr = validFloat(170)
	run.Calories = validFloat(300)

	ride := createTestActivity(2, "CYCLING", time.Date(2025, 6, 4, 17, 0, 0, 0, time.UTC), 60)
	ride.DistanceMi = validFloat(10)
	ride.AvgHr = validFloat(130)
	ride.MaxHr = validFloat(160)
	ride.Calories = validFloat(500)

	multi := createTestActivity(3, "MULTISPORT", time.Date(2025, 6, 5, 8, 0, 0, 0, time.UTC), 90)
	multi.DistanceMi = validFloat(13.1)

	gym := createTestActivity(4, "TRAINING", time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC), 45)
	gym.AvgHr = validFloat(120)
	gym.Calories = validFloat(200)

	old := createTestActivity(5, "RUNNING", time.Date(2024, 12, 30, 7, 0, 0, 0, time.UTC), 20)
	old.DistanceMi = validFloat(2)

	return &MockQuerier{
		activities: []db.Activity{run, ride, multi, gym, old},
		zones: []db.HrZoneTime{
			{ActivityID: 1, ZoneNumber: 1, TimeMs: 60000},
			{ActivityID: 1, ZoneNumber: 2, TimeMs: 120000},
			{ActivityID: 2, ZoneNumber: 1, TimeMs: 60000},
			{ActivityID: 2, ZoneNumber: 3, TimeMs: 60000},
			{ActivityID: 3, ZoneNumber: 1, TimeMs: 600000},
		},
	}
}

func TestServerNew(t *testing.T) {
	t.Parallel()

	mock := &MockQuerier{}
	srv := New(mock)

	if srv == nil {
		t.Fatal("expected non-nil server")
	}
	if srv.mcp == nil {
		t.Error("expected non-nil MCP server")
	}
	if srv.MCPServer() != srv.mcp {
		t.Error("expected MCPServer to return the underlying server")
	}
}

func TestBuildTable(t *testing.T) {
	t.Parallel()

	q := newTestQuerier()
	tbl := buildTable(q.activities, q.zones)

	if tbl.Len() != 5 {
		t.Fatalf("expected 5 rows, got %d", tbl.Len())
	}
	for _, name := range []string{"activityId", "sportType", "start_time_local", "distance_mi", "parent", "hrTimeInZone_1", "hrTimeInZone_2", "hrTimeInZone_3"} {
		if !tbl.Has(name) {
			t.Errorf("expected column %s", name)
		}
	}
	if v := tbl.Value("distance_mi", 3); v != nil {
		t.Errorf("expected null distance for the gym session, got %v", v)
	}
	if v := tbl.Value("hrTimeInZone_2", 0); v != 120000.0 {
		t.Errorf("expected zone 2 time 120000, got %v", v)
	}
	if v := tbl.Value("hrTimeInZone_2", 1); v != nil {
		t.Errorf("expected null zone 2 time for the ride, got %v", v)
	}
	if v := tbl.Value("parent", 0); v != false {
		t.Errorf("expected parent false, got %v", v)
	}
}

func TestGetSummaryStats(t *testing.T) {
	t.Parallel()

	srv := New(newTestQuerier())
	ctx := context.Background()

	_, output, err := srv.getSummaryStats(ctx, nil, SummaryStatsInput{Year: 2025})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := output.Summary
	if s.ActivityCount != 3 {
		t.Errorf("expected 3 activities without the container, got %d", s.ActivityCount)
	}
	if s.TotalMiles == nil || *s.TotalMiles != 13.1 {
		t.Errorf("expected total miles 13.1, got %v", s.TotalMiles)
	}
	if s.TotalHours == nil || *s.TotalHours != 2.25 {
		t.Errorf("expected total hours 2.25, got %v", s.TotalHours)
	}
	if s.AvgHeartRate == nil || *s.AvgHeartRate != 130 {
		t.Errorf("expected avg heart rate 130, got %v", s.AvgHeartRate)
	}
	if s.MaxHeartRate == nil || *s.MaxHeartRate != 170 {
		t.Errorf("expected max heart rate 170, got %v", s.MaxHeartRate)
	}
	if s.TotalCalories == nil || *s.TotalCalories != 1000 {
		t.Errorf("expected total calories 1000, got %v", s.TotalCalories)
	}
	if s.DateRange == nil || s.DateRange.Start != "2025-06-02" || s.DateRange.End != "2025-06-10" {
		t.Errorf("unexpected date range %+v", s.DateRange)
	}
	if len(s.TopSports) != 3 || s.TopSports[2].Sport != "FITNESS_EQUIPMENT" {
		t.Errorf("unexpected top sports %+v", s.TopSports)
	}
	if len(output.Insights) == 0 {
		t.Error("expected insights")
	}

	_, output, err = srv.getSummaryStats(ctx, nil, SummaryStatsInput{Year: 2025, IncludeContainers: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Summary.ActivityCount != 4 {
		t.Errorf("expected 4 activities with the container, got %d", output.Summary.ActivityCount)
	}

	_, output, err = srv.getSummaryStats(ctx, nil, SummaryStatsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Summary.ActivityCount != 4 {
		t.Errorf("expected 4 activities across all years, got %d", output.Summary.ActivityCount)
	}
}

func TestGetSummaryStatsErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := []struct {
		name     string
		querier  *MockQuerier
		input    SummaryStatsInput
		expected ErrorCode
	}{
		{"year too small", newTestQuerier(), SummaryStatsInput{Year: 25}, ErrInvalidInput},
		{"year too large", newTestQuerier(), SummaryStatsInput{Year: 20250}, ErrInvalidInput},
		{"year without activities", newTestQuerier(), SummaryStatsInput{Year: 2023}, ErrNotFound},
		{"database failure", &MockQuerier{err: errors.New("disk I/O error")}, SummaryStatsInput{}, ErrDatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := New(tt.querier).getSummaryStats(ctx, nil, tt.input)
			if got := Code(err); got != tt.expected {
				t.Errorf("expected %s, got %v", tt.expected, err)
			}
		})
	}
}

func TestCountBySport(t *testing.T) {
	t.Parallel()

	srv := New(newTestQuerier())
	_, output, err := srv.countBySport(context.Background(), nil, CountBySportInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output.Total != 4 {
		t.Errorf("expected total 4, got %d", output.Total)
	}
	if len(output.BySport) != 3 {
		t.Fatalf("expected 3 sports, got %+v", output.BySport)
	}
	if output.BySport[0].Sport != "RUNNING" || output.BySport[0].Count != 2 {
		t.Errorf("expected RUNNING first with 2, got %+v", output.BySport[0])
	}
	for _, sc := range output.BySport {
		if sc.Sport == "TRAINING" || sc.Sport == "MULTISPORT" {
			t.Errorf("unexpected sport %s", sc.Sport)
		}
	}
}

func TestGetWeeklyTotals(t *testing.T) {
	t.Parallel()

	srv := New(newTestQuerier())
	ctx := context.Background()

	_, output, err := srv.getWeeklyTotals(ctx, nil, WeeklyTotalsInput{Year: 2025})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Metric != "distance" || output.Unit != "miles" {
		t.Errorf("expected default distance metric, got %s/%s", output.Metric, output.Unit)
	}
	if len(output.Weeks) != 2 {
		t.Fatalf("expected 2 weeks, got %+v", output.Weeks)
	}
	if output.Weeks[0].WeekStart != "2025-06-02" || output.Weeks[0].Value != 13.1 {
		t.Errorf("unexpected first week %+v", output.Weeks[0])
	}
	if output.Weeks[1].WeekStart != "2025-06-09" || output.Weeks[1].Value != 0 {
		t.Errorf("unexpected second week %+v", output.Weeks[1])
	}
	if output.PeakWeek == nil || output.PeakWeek.WeekStart != "2025-06-02" {
		t.Errorf("unexpected peak week %+v", output.PeakWeek)
	}

	_, output, err = srv.getWeeklyTotals(ctx, nil, WeeklyTotalsInput{Year: 2025, Metric: "duration"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Weeks) != 2 || output.Weeks[0].Value != 90 || output.Weeks[1].Value != 45 {
		t.Errorf("unexpected duration weeks %+v", output.Weeks)
	}

	_, _, err = srv.getWeeklyTotals(ctx, nil, WeeklyTotalsInput{Metric: "elevation"})
	if Code(err) != ErrInvalidInput {
		t.Errorf("expected INVALID_INPUT for an unknown metric, got %v", err)
	}
}

func TestGetHRZones(t *testing.T) {
	t.Parallel()

	srv := New(newTestQuerier())
	_, output, err := srv.getHRZones(context.Background(), nil, HRZonesInput{Year: 2025})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output.TotalMinutes != 5 {
		t.Errorf("expected 5 minutes without the container, got %v", output.TotalMinutes)
	}
	expected := []ZoneShare{
		{Zone: 1, Minutes: 2, Percent: 40},
		{Zone: 2, Minutes: 2, Percent: 40},
		{Zone: 3, Minutes: 1, Percent: 20},
	}
	if len(output.Zones) != len(expected) {
		t.Fatalf("expected %d zones, got %+v", len(expected), output.Zones)
	}
	for i, z := range expected {
		if output.Zones[i] != z {
			t.Errorf("zone %d: expected %+v, got %+v", i, z, output.Zones[i])
		}
	}
	if len(output.Insights) == 0 || !strings.Contains(output.Insights[0].Message, "80%") {
		t.Errorf("expected an easy-share insight, got %+v", output.Insights)
	}
}

func TestGetHRZonesWithoutData(t *testing.T) {
	t.Parallel()

	q := newTestQuerier()
	q.zones = nil
	_, output, err := New(q).getHRZones(context.Background(), nil, HRZonesInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Zones) != 0 || output.TotalMinutes != 0 {
		t.Errorf("expected no zones, got %+v", output)
	}
	if len(output.Insights) != 1 || output.Insights[0].Type != "warning" {
		t.Errorf("expected a warning insight, got %+v", output.Insights)
	}
}

func TestReadLatestRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	req := &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: latestRunURI}}

	result, err := New(&MockQuerier{}).readLatestRun(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Contents[0].Text != noPipelineRunsResult {
		t.Errorf("expected no runs message, got %s", result.Contents[0].Text)
	}

	q := newTestQuerier()
	q.runs = []db.PipelineRun{{
		ID:          "0b8f7c1e-run",
		Source:      "data/summarized_activities.json",
		Status:      db.RunStatusSucceeded,
		RowCount:    5,
		ColumnCount: 17,
		StartedAt:   time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC),
	}}
	result, err = New(q).readLatestRun(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var summary RunSummary
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &summary); err != nil {
		t.Fatalf("decoding resource: %v", err)
	}
	if summary.ID != "0b8f7c1e-run" || summary.RowCount != 5 || summary.Activities != 5 {
		t.Errorf("unexpected run summary %+v", summary)
	}
	if summary.StartedAt != "2025-06-11T09:00:00Z" || summary.FinishedAt != "" {
		t.Errorf("unexpected timestamps %+v", summary)
	}
}

func TestReadActivityByID(t *testing.T) {
	t.Parallel()

	srv := New(newTestQuerier())
	ctx := context.Background()
	read := func(uri string) (*mcp.ReadResourceResult, error) {
		return srv.readActivityByID(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	}

	result, err := read("activity-export://activities/4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var detail ActivityDetail
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &detail); err != nil {
		t.Fatalf("decoding resource: %v", err)
	}
	if detail.ID != 4 || detail.SportGroup != "FITNESS_EQUIPMENT" || detail.Container {
		t.Errorf("unexpected activity %+v", detail)
	}
	if detail.DistanceMi != nil {
		t.Errorf("expected no distance, got %v", *detail.DistanceMi)
	}

	result, err = read("activity-export://activities/99")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Contents[0].Text, "Activity 99 not found") {
		t.Errorf("expected not found message, got %s", result.Contents[0].Text)
	}

	if _, err := read("activity-export://activities/abc"); Code(err) != ErrInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestConvertActivityContainer(t *testing.T) {
	t.Parallel()

	q := newTestQuerier()
	detail := convertActivity(q.activities[2])
	if !detail.Container {
		t.Error("expected multisport activity to be a container")
	}

	child := q.activities[0]
	child.Parent = 1
	if !convertActivity(child).Container {
		t.Error("expected parent flag to mark a container")
	}
}

func TestYearInReviewPrompt(t *testing.T) {
	t.Parallel()

	srv := New(&MockQuerier{})
	ctx := context.Background()

	result, err := srv.yearInReviewPrompt(ctx, &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Arguments: map[string]string{"year": "2025"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := result.Messages[0].Content.(*mcp.TextContent).Text
	if !strings.Contains(text, "training for 2025") || !strings.Contains(text, "year=2025") {
		t.Errorf("expected the year in the prompt, got %s", text)
	}

	result, err = srv.intensityCheckPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text = result.Messages[0].Content.(*mcp.TextContent).Text
	if !strings.Contains(text, "get_hr_zones** with no year") {
		t.Errorf("expected the no-year form, got %s", text)
	}
}

func TestCodeWrapped(t *testing.T) {
	t.Parallel()

	err := notFound("activities", "year=2023")
	if Code(fmt.Errorf("tool: %w", err)) != ErrNotFound {
		t.Errorf("expected NOT_FOUND through wrapping, got %s", Code(err))
	}
	if Code(errors.New("plain")) != "" {
		t.Error("expected no code for a plain error")
	}
	if err.Error() != "NOT_FOUND: activities not found (year=2023)" {
		t.Errorf("unexpected message %q", err.Error())
	}

	dbErr := databaseError("list activities", sql.ErrConnDone)
	if !errors.Is(dbErr, sql.ErrConnDone) {
		t.Error("expected the driver error to stay reachable")
	}
	if dbErr.Message != "database list activities failed" {
		t.Errorf("unexpected message %q", dbErr.Message)
	}
}
