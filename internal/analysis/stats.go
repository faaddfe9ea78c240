package analysis

import (
	"sort"

	"github.com/joshdurbin/activity-export/internal/table"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

// TopSportsLimit is how many sport groups the summary lists
const TopSportsLimit = 5

// DateRange is the first and last activity date as ISO dates
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Summary holds the headline statistics for a table. Pointer and slice fields
// are nil when their source column is missing or holds no values.
type Summary struct {
	ActivityCount     int          `json:"activity_count"`
	DateRange         *DateRange   `json:"date_range,omitempty"`
	TotalMiles        *float64     `json:"total_miles,omitempty"`
	MedianMiles       *float64     `json:"median_miles,omitempty"`
	TotalHours        *float64     `json:"total_hours,omitempty"`
	MedianDurationMin *float64     `json:"median_duration_min,omitempty"`
	TotalCalories     *int64       `json:"total_calories,omitempty"`
	AvgHeartRate      *float64     `json:"avg_heart_rate,omitempty"`
	MaxHeartRate      *int64       `json:"max_heart_rate,omitempty"`
	TopSports         []SportCount `json:"top_sports,omitempty"`
}

// ComputeStats summarizes t. Every entry is computed on its own and skipped
// when its column is absent.
func ComputeStats(t *table.Table) Summary {
	s := Summary{ActivityCount: t.Len()}

	if col, ok := t.Column(ColStartLocal); ok {
		var first, last string
		for _, v := range col.Values {
			ts, ok := table.Time(v)
			if !ok {
				continue
			}
			d := ts.Format("2006-01-02")
			if first == "" || d < first {
				first = d
			}
			if d > last {
				last = d
			}
		}
		if first != "" {
			s.DateRange = &DateRange{Start: first, End: last}
		}
	}

	if col, ok := t.Column(ColDistanceMi); ok {
		vals := table.Floats(col)
		s.TotalMiles = ptr(scalar.Round(floats.Sum(vals), 2))
		if m, ok := Median(vals); ok {
			s.MedianMiles = ptr(scalar.Round(m, 2))
		}
	}

	if col, ok := t.Column(ColDuration); ok {
		vals := table.Floats(col)
		s.TotalHours = ptr(scalar.Round(floats.Sum(vals)/60, 2))
		if m, ok := Median(vals); ok {
			s.MedianDurationMin = ptr(scalar.Round(m, 2))
		}
	}

	if col, ok := t.Column(ColCalories); ok {
		total := int64(floats.Sum(table.Floats(col)))
		s.TotalCalories = &total
	}

	if col, ok := t.Column(ColAvgHR); ok {
		if vals := table.Floats(col); len(vals) > 0 {
			s.AvgHeartRate = ptr(scalar.Round(stat.Mean(vals, nil), 1))
		}
	}

	if col, ok := t.Column(ColMaxHR); ok {
		if vals := table.Floats(col); len(vals) > 0 {
			m := int64(floats.Max(vals))
			s.MaxHeartRate = &m
		}
	}

	if t.Has(ColSportGroup) {
		counts := CountBySport(t)
		if len(counts) > TopSportsLimit {
			counts = counts[:TopSportsLimit]
		}
		s.TopSports = counts
	}

	return s
}

// Median returns the median of vals, the mean of the two middle values for an
// even count. ok is false for an empty slice. stat.Quantile picks one of the
// two middle values instead, so it is not used here.
func Median(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

func ptr[T any](v T) *T {
	return &v
}
