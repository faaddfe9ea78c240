package analysis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joshdurbin/activity-export/internal/table"
	"gonum.org/v1/gonum/floats"
)

// ZonePrefix starts every heart-rate zone column name; the suffix is the zone number
const ZonePrefix = "hrTimeInZone_"

// SportCount is the number of activities in one sport group
type SportCount struct {
	Sport string `json:"sport"`
	Count int    `json:"count"`
}

// GroupValue is a single aggregate for one sport group
type GroupValue struct {
	Group string  `json:"group"`
	Value float64 `json:"value"`
}

// DatePoint is an aggregate for one day or week
type DatePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ZoneTotal is the total time spent in one heart-rate zone
type ZoneTotal struct {
	Zone    int     `json:"zone"`
	Minutes float64 `json:"minutes"`
}

func label(v any) (string, bool) {
	if table.IsNull(v) {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// CountBySport counts rows per sport group, largest first. Ties keep the order
// in which groups first appear. Null groups are not counted.
func CountBySport(t *table.Table) []SportCount {
	col, ok := t.Column(ColSportGroup)
	if !ok {
		return nil
	}

	var out []SportCount
	pos := map[string]int{}
	for _, v := range col.Values {
		s, ok := label(v)
		if !ok {
			continue
		}
		i, seen := pos[s]
		if !seen {
			i = len(out)
			pos[s] = i
			out = append(out, SportCount{Sport: s})
		}
		out[i].Count++
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// MedianDurationBySport returns the median duration_minutes per sport group,
// largest first. Rows missing either value are ignored.
func MedianDurationBySport(t *table.Table) []GroupValue {
	groups, ok := t.Column(ColSportGroup)
	if !ok {
		return nil
	}
	durations, ok := t.Column(ColDuration)
	if !ok {
		return nil
	}

	byGroup := map[string][]float64{}
	for row := range groups.Values {
		g, ok := label(groups.Values[row])
		if !ok {
			continue
		}
		d, ok := table.Float(durations.Values[row])
		if !ok {
			continue
		}
		byGroup[g] = append(byGroup[g], d)
	}

	names := make([]string, 0, len(byGroup))
	for g := range byGroup {
		names = append(names, g)
	}
	sort.Strings(names)

	out := make([]GroupValue, 0, len(names))
	for _, g := range names {
		m, _ := Median(byGroup[g])
		out = append(out, GroupValue{Group: g, Value: m})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	return out
}

// DailyDistance sums distance_mi per calendar day of the local start time, in date order
func DailyDistance(t *table.Table) []DatePoint {
	if !t.Has(ColStartLocal) || !t.Has(ColDistanceMi) {
		return nil
	}
	return sumByDate(t, ColDistanceMi, func(ts time.Time) time.Time {
		y, m, d := ts.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	})
}

// WeekStart returns midnight of the Monday starting the week that holds ts
func WeekStart(ts time.Time) time.Time {
	y, m, d := ts.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// WeeklyTotals sums the named column per week of the local start time, in week order
func WeeklyTotals(t *table.Table, column string) []DatePoint {
	if !t.Has(ColStartLocal) || !t.Has(column) {
		return nil
	}
	return sumByDate(t, column, WeekStart)
}

// sumByDate buckets rows with a start time by bucket(start) and sums column.
// Null values count as zero.
func sumByDate(t *table.Table, column string, bucket func(time.Time) time.Time) []DatePoint {
	starts, _ := t.Column(ColStartLocal)
	values, _ := t.Column(column)

	sums := map[time.Time]float64{}
	for row := range starts.Values {
		ts, ok := table.Time(starts.Values[row])
		if !ok {
			continue
		}
		key := bucket(ts)
		f, _ := table.Float(values.Values[row])
		sums[key] += f
	}

	out := make([]DatePoint, 0, len(sums))
	for d, v := range sums {
		out = append(out, DatePoint{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// ZoneColumns returns the heart-rate zone columns ordered by zone number
func ZoneColumns(t *table.Table) []string {
	type zoneCol struct {
		name string
		zone int
	}
	var cols []zoneCol
	for _, name := range t.Names() {
		if !strings.HasPrefix(name, ZonePrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, ZonePrefix))
		if err != nil {
			continue
		}
		cols = append(cols, zoneCol{name: name, zone: n})
	}
	sort.Slice(cols, func(i, j int) bool {
		return cols[i].zone < cols[j].zone
	})

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// ZoneMinutes totals each zone column, converting milliseconds to minutes
func ZoneMinutes(t *table.Table) []ZoneTotal {
	var out []ZoneTotal
	for _, name := range ZoneColumns(t) {
		col, _ := t.Column(name)
		n, _ := strconv.Atoi(strings.TrimPrefix(name, ZonePrefix))
		out = append(out, ZoneTotal{Zone: n, Minutes: floats.Sum(table.Floats(col)) / 60000})
	}
	return out
}
