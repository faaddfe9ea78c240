// Package clean turns raw export records into the tidy activity table and writes it as CSV.
package clean

import (
	"math"
	"sort"
	"time"

	"github.com/joshdurbin/activity-export/internal/export"
	"github.com/joshdurbin/activity-export/internal/table"
)

// Unit conversion factors
const (
	msPerMinute   = 60000.0
	cmPerKm       = 100000.0
	milesPerKm    = 0.621371
	mphPerMPerSec = 2.23694
)

// NoiseColumns are raw fields that are removed before any derivation
var NoiseColumns = []string{
	"summarizedExerciseSets",
	"summarizedDiveInfo",
	"uuidMsb",
	"uuidLsb",
	"rule",
}

// PreferredOrder lists the columns shown first in the cleaned table, when present
var PreferredOrder = []string{
	"activityId",
	"name",
	"activityType",
	"sportType",
	"start_time_local",
	"start_time_gmt",
	"duration_minutes",
	"moving_minutes",
	"distance_km",
	"distance_mi",
	"avg_speed_mph",
	"avgHr",
	"maxHr",
	"steps",
	"calories",
	"calories_per_min",
	"trainingEffectLabel",
	"moderateIntensityMinutes",
	"vigorousIntensityMinutes",
	"totalSets",
	"totalReps",
}

// Derivation produces a new column from the named source columns. It only runs
// when every source column is present.
type Derivation struct {
	Target  string
	Sources []string
	Derive  func(src ...*table.Column) *table.Column
}

// Derivations are applied in order, so later entries may read columns produced by earlier ones
var Derivations = []Derivation{
	{Target: "start_time_gmt", Sources: []string{"startTimeGmt"}, Derive: unary(EpochMillis)},
	{Target: "start_time_local", Sources: []string{"startTimeLocal"}, Derive: unary(EpochMillis)},
	{Target: "begin_time", Sources: []string{"beginTimestamp"}, Derive: unary(EpochMillis)},
	{Target: "duration_minutes", Sources: []string{"duration"}, Derive: unary(Divide(msPerMinute))},
	{Target: "elapsed_minutes", Sources: []string{"elapsedDuration"}, Derive: unary(Divide(msPerMinute))},
	{Target: "moving_minutes", Sources: []string{"movingDuration"}, Derive: unary(Divide(msPerMinute))},
	{Target: "distance_km", Sources: []string{"distance"}, Derive: unary(Divide(cmPerKm))},
	{Target: "distance_mi", Sources: []string{"distance_km"}, Derive: unary(Scale(milesPerKm))},
	{Target: "avg_speed_mph", Sources: []string{"avgSpeed"}, Derive: unary(Scale(mphPerMPerSec))},
	{Target: "calories_per_min", Sources: []string{"calories", "duration_minutes"}, Derive: binary(Rate)},
}

func unary(fn func(*table.Column) []any) func(...*table.Column) *table.Column {
	return func(src ...*table.Column) *table.Column {
		return table.NewColumn("", fn(src[0]))
	}
}

func binary(fn func(a, b *table.Column) []any) func(...*table.Column) *table.Column {
	return func(src ...*table.Column) *table.Column {
		return table.NewColumn("", fn(src[0], src[1]))
	}
}

// BuildTable flattens records into the wide activity table with derived columns.
// Pass-through columns follow order, normally export.Export.Columns; keys it
// does not name are appended in order of first appearance, lexically within a
// record. Records are not modified.
func BuildTable(records []export.Record, order ...string) *table.Table {
	t := flatten(records, order)
	t = t.Drop(NoiseColumns...)
	t = Derive(t)
	return Reorder(t)
}

func flatten(records []export.Record, order []string) *table.Table {
	var names []string
	seen := map[string]bool{}
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			names = append(names, k)
		}
	}

	present := map[string]bool{}
	for _, rec := range records {
		for k := range rec {
			present[k] = true
		}
	}
	for _, k := range order {
		if present[k] {
			add(k)
		}
	}
	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(k)
		}
	}

	t := table.New(len(records))
	for _, name := range names {
		vals := make([]any, len(records))
		for i, rec := range records {
			vals[i] = rec[name]
		}
		t = t.With(table.NewColumn(name, vals))
	}
	return t
}

// Derive applies every derivation whose source columns are present
func Derive(t *table.Table) *table.Table {
	for _, d := range Derivations {
		src := make([]*table.Column, 0, len(d.Sources))
		for _, name := range d.Sources {
			c, ok := t.Column(name)
			if !ok {
				break
			}
			src = append(src, c)
		}
		if len(src) != len(d.Sources) {
			continue
		}
		col := d.Derive(src...)
		col.Name = d.Target
		t = t.With(col)
	}
	return t
}

// Reorder moves PreferredOrder columns to the front, keeping the rest in place
func Reorder(t *table.Table) *table.Table {
	names := make([]string, 0, t.Width())
	first := map[string]bool{}
	for _, n := range PreferredOrder {
		if t.Has(n) {
			names = append(names, n)
			first[n] = true
		}
	}
	for _, n := range t.Names() {
		if !first[n] {
			names = append(names, n)
		}
	}
	return t.Select(names...)
}

// EpochMillis converts millisecond epoch cells to UTC timestamps. Anything
// that is not a finite number becomes null.
func EpochMillis(c *table.Column) []any {
	out := make([]any, c.Len())
	for i, v := range c.Values {
		switch ms := v.(type) {
		case int64:
			out[i] = time.UnixMilli(ms).UTC()
		case float64:
			if math.IsNaN(ms) || math.IsInf(ms, 0) {
				continue
			}
			sec, frac := math.Modf(ms / 1000)
			out[i] = time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
		}
	}
	return out
}

// Scale returns a derivation multiplying numeric cells by factor. Non-numeric cells become null.
func Scale(factor float64) func(*table.Column) []any {
	return func(c *table.Column) []any {
		out := make([]any, c.Len())
		for i, v := range c.Values {
			if f, ok := table.Float(v); ok {
				out[i] = f * factor
			}
		}
		return out
	}
}

// Divide returns a derivation dividing numeric cells by divisor. Non-numeric cells become null.
func Divide(divisor float64) func(*table.Column) []any {
	return func(c *table.Column) []any {
		out := make([]any, c.Len())
		for i, v := range c.Values {
			if f, ok := table.Float(v); ok {
				out[i] = f / divisor
			}
		}
		return out
	}
}

// Rate divides num by den cell-wise. A null, non-numeric or zero denominator yields null.
func Rate(num, den *table.Column) []any {
	out := make([]any, num.Len())
	for i := range num.Values {
		n, ok := table.Float(num.Values[i])
		if !ok {
			continue
		}
		d, ok := table.Float(den.Values[i])
		if !ok || d == 0 {
			continue
		}
		out[i] = n / d
	}
	return out
}
