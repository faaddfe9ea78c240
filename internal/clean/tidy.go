package clean

import (
	"github.com/joshdurbin/activity-export/internal/logging"
	"github.com/joshdurbin/activity-export/internal/table"
)

// SparseThreshold is the null fraction above which a column is dropped
const SparseThreshold = 0.9

// BoolColumns are coerced to true/false. Null becomes false.
var BoolColumns = []string{
	"parent",
	"pr",
	"elevationCorrected",
	"decoDive",
	"purposeful",
	"autoCalcCalories",
	"favorite",
	"atpActivity",
}

// IDColumns are coerced to nullable int64
var IDColumns = []string{
	"activityId",
	"userProfileId",
	"deviceId",
	"eventTypeId",
	"timeZoneId",
}

// Pruning lists the columns Tidy removes and why
type Pruning struct {
	Sparse   []string
	Constant []string
}

// Tidy prunes sparse and constant columns and coerces flag and identifier columns.
//
// Pruning decisions are taken on the table as given, before coercion, and the
// decided names are removed after coercion. A column that only becomes constant
// through coercion is therefore kept, so running Tidy again on its own output
// may remove further columns.
func Tidy(t *table.Table) *table.Table {
	out, _ := TidyWithReport(t)
	return out
}

// TidyWithReport is Tidy that also returns the pruning decisions
func TidyWithReport(t *table.Table) (*table.Table, Pruning) {
	p := DetectPruning(t)

	for _, name := range BoolColumns {
		if c, ok := t.Column(name); ok {
			t = t.With(c.Map(name, coerceBool))
		}
	}
	for _, name := range IDColumns {
		if c, ok := t.Column(name); ok {
			t = t.With(c.Map(name, coerceID))
		}
	}

	t = t.Drop(p.Sparse...).Drop(p.Constant...)

	if logging.IsTraceEnabled() {
		logging.Debug("tidy pruning", "sparse", logging.ToJSON(p.Sparse), "constant", logging.ToJSON(p.Constant))
	}
	return t, p
}

// DetectPruning finds sparse and constant columns. A column can appear in both lists.
func DetectPruning(t *table.Table) Pruning {
	var p Pruning
	for _, c := range t.Columns() {
		if table.NullFraction(c) > SparseThreshold {
			p.Sparse = append(p.Sparse, c.Name)
		}
		// nested values cannot be compared, so those columns are kept
		if n, ok := table.Distinct(c); ok && n == 1 {
			p.Constant = append(p.Constant, c.Name)
		}
	}
	return p
}

func coerceBool(v any) any {
	return table.Truthy(v)
}

func coerceID(v any) any {
	if n, ok := table.Int(v); ok {
		return n
	}
	return nil
}
