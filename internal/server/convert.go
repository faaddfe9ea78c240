package server

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/joshdurbin/activity-export/internal/analysis"
	"github.com/joshdurbin/activity-export/internal/db"
	"github.com/joshdurbin/activity-export/internal/table"
	"gonum.org/v1/gonum/floats/scalar"
)

// activityFields maps cached columns back to their cleaned table names
var activityFields = []struct {
	column string
	value  func(a db.Activity) any
}{
	{"activityId", func(a db.Activity) any { return a.ActivityID }},
	{"name", func(a db.Activity) any { return nullString(a.Name) }},
	{"activityType", func(a db.Activity) any { return nullString(a.ActivityType) }},
	{analysis.ColSportType, func(a db.Activity) any { return nullString(a.SportType) }},
	{analysis.ColStartLocal, func(a db.Activity) any { return nullTime(a.StartTimeLocal) }},
	{"start_time_gmt", func(a db.Activity) any { return nullTime(a.StartTimeGmt) }},
	{analysis.ColDuration, func(a db.Activity) any { return nullFloat(a.DurationMinutes) }},
	{"moving_minutes", func(a db.Activity) any { return nullFloat(a.MovingMinutes) }},
	{"distance_km", func(a db.Activity) any { return nullFloat(a.DistanceKm) }},
	{analysis.ColDistanceMi, func(a db.Activity) any { return nullFloat(a.DistanceMi) }},
	{"avg_speed_mph", func(a db.Activity) any { return nullFloat(a.AvgSpeedMph) }},
	{analysis.ColAvgHR, func(a db.Activity) any { return nullFloat(a.AvgHr) }},
	{analysis.ColMaxHR, func(a db.Activity) any { return nullFloat(a.MaxHr) }},
	{"steps", func(a db.Activity) any { return nullInt(a.Steps) }},
	{analysis.ColCalories, func(a db.Activity) any { return nullFloat(a.Calories) }},
	{"calories_per_min", func(a db.Activity) any { return nullFloat(a.CaloriesPerMin) }},
	{analysis.ColParent, func(a db.Activity) any { return a.Parent != 0 }},
}

// buildTable rebuilds the cleaned activity table from cached rows. Zone times
// become hrTimeInZone_N columns in milliseconds, null where an activity has none.
func buildTable(activities []db.Activity, zones []db.HrZoneTime) *table.Table {
	t := table.New(len(activities))
	for _, f := range activityFields {
		values := make([]any, len(activities))
		for i, a := range activities {
			values[i] = f.value(a)
		}
		t = t.With(table.NewColumn(f.column, values))
	}

	rowOf := make(map[int64]int, len(activities))
	for i, a := range activities {
		rowOf[a.ActivityID] = i
	}

	byZone := map[int64][]any{}
	for _, z := range zones {
		row, ok := rowOf[z.ActivityID]
		if !ok {
			continue
		}
		values, ok := byZone[z.ZoneNumber]
		if !ok {
			values = make([]any, len(activities))
			byZone[z.ZoneNumber] = values
		}
		values[row] = z.TimeMs
	}

	numbers := make([]int64, 0, len(byZone))
	for n := range byZone {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for _, n := range numbers {
		t = t.With(table.NewColumn(fmt.Sprintf("%s%d", analysis.ZonePrefix, n), byZone[n]))
	}
	return t
}

// ActivityDetail is the JSON form of one cached activity
type ActivityDetail struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name,omitempty"`
	ActivityType   string   `json:"activity_type,omitempty"`
	SportType      string   `json:"sport_type,omitempty"`
	SportGroup     string   `json:"sport_group,omitempty"`
	StartTimeLocal string   `json:"start_time_local,omitempty"`
	DurationMin    *float64 `json:"duration_minutes,omitempty"`
	DistanceMi     *float64 `json:"distance_mi,omitempty"`
	AvgSpeedMph    *float64 `json:"avg_speed_mph,omitempty"`
	AvgHeartRate   *float64 `json:"avg_heart_rate,omitempty"`
	MaxHeartRate   *float64 `json:"max_heart_rate,omitempty"`
	Steps          *int64   `json:"steps,omitempty"`
	Calories       *float64 `json:"calories,omitempty"`
	CaloriesPerMin *float64 `json:"calories_per_min,omitempty"`
	Container      bool     `json:"container"`
}

func convertActivity(a db.Activity) ActivityDetail {
	d := ActivityDetail{
		ID:           a.ActivityID,
		Name:         a.Name.String,
		ActivityType: a.ActivityType.String,
		SportType:    a.SportType.String,
		Container:    a.Parent != 0 || a.SportType.String == analysis.ContainerSportType,
	}
	if a.SportType.Valid {
		d.SportGroup, _ = analysis.SportGroup(a.SportType.String).(string)
	}
	if a.StartTimeLocal.Valid {
		d.StartTimeLocal = a.StartTimeLocal.Time.Format("2006-01-02 15:04:05")
	}
	d.DurationMin = floatPtr(a.DurationMinutes, 2)
	d.DistanceMi = floatPtr(a.DistanceMi, 2)
	d.AvgSpeedMph = floatPtr(a.AvgSpeedMph, 2)
	d.AvgHeartRate = floatPtr(a.AvgHr, 0)
	d.MaxHeartRate = floatPtr(a.MaxHr, 0)
	d.Calories = floatPtr(a.Calories, 0)
	d.CaloriesPerMin = floatPtr(a.CaloriesPerMin, 2)
	if a.Steps.Valid {
		d.Steps = ptr(a.Steps.Int64)
	}
	return d
}

func nullString(v sql.NullString) any {
	if !v.Valid {
		return nil
	}
	return v.String
}

func nullFloat(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func nullInt(v sql.NullInt64) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func nullTime(v sql.NullTime) any {
	if !v.Valid {
		return nil
	}
	return v.Time.UTC()
}

func floatPtr(v sql.NullFloat64, places int) *float64 {
	if !v.Valid {
		return nil
	}
	return ptr(scalar.Round(v.Float64, places))
}

func formatTime(v sql.NullTime) string {
	if !v.Valid {
		return ""
	}
	return v.Time.UTC().Format(time.RFC3339)
}
