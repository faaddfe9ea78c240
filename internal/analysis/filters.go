package analysis

import (
	"github.com/joshdurbin/activity-export/internal/table"
)

// Column names the analysis depends on
const (
	ColStartLocal = "start_time_local"
	ColSportType  = "sportType"
	ColSportGroup = "sport_group"
	ColParent     = "parent"
	ColDistanceMi = "distance_mi"
	ColDuration   = "duration_minutes"
	ColCalories   = "calories"
	ColAvgHR      = "avgHr"
	ColMaxHR      = "maxHr"
)

// ContainerSportType marks a multisport wrapper activity
const ContainerSportType = "MULTISPORT"

// SportGroups folds near-duplicate sport labels together for display
var SportGroups = map[string]string{
	"TRAINING": "FITNESS_EQUIPMENT",
}

// FilterYear keeps rows whose local start time falls in year. Rows without a
// start time are dropped. Without the start time column the table is returned as is.
func FilterYear(t *table.Table, year int) *table.Table {
	col, ok := t.Column(ColStartLocal)
	if !ok {
		return t
	}
	return t.Filter(func(row int) bool {
		ts, ok := table.Time(col.Values[row])
		return ok && ts.Year() == year
	})
}

// IsContainer reports whether row is a multisport wrapper. A missing parent flag means not a container.
func IsContainer(t *table.Table, row int) bool {
	if s, ok := table.Str(t.Value(ColSportType, row)); ok && s == ContainerSportType {
		return true
	}
	return table.Truthy(t.Value(ColParent, row))
}

// DropContainers removes multisport wrapper rows so their children are not counted twice
func DropContainers(t *table.Table) *table.Table {
	if !t.Has(ColSportType) && !t.Has(ColParent) {
		return t
	}
	return t.Filter(func(row int) bool {
		return !IsContainer(t, row)
	})
}

// SportGroup maps a raw sport label to its display group
func SportGroup(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if g, ok := SportGroups[s]; ok {
		return g
	}
	return s
}

// ApplySportGroups adds or replaces the sport_group column derived from sportType
func ApplySportGroups(t *table.Table) *table.Table {
	col, ok := t.Column(ColSportType)
	if !ok {
		return t
	}
	return t.With(col.Map(ColSportGroup, SportGroup))
}

// Prepare applies the standard analysis filters: the year (when non-zero),
// container removal, then sport grouping
func Prepare(t *table.Table, year int) *table.Table {
	if year != 0 {
		t = FilterYear(t, year)
	}
	t = DropContainers(t)
	return ApplySportGroups(t)
}
