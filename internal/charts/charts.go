package charts

import (
	"fmt"

	"github.com/joshdurbin/activity-export/internal/analysis"
	"github.com/joshdurbin/activity-export/internal/table"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Output file names
const (
	ActivityCountsFile   = "activity_counts.png"
	DistanceOverTimeFile = "distance_over_time.png"
	HeartRateHistFile    = "heart_rate_hist.png"
	MedianDurationFile   = "median_duration_by_sport.png"
	HRZoneFile           = "hr_zone_distribution.png"
	WeeklyDistanceFile   = "weekly_distance.png"
	WeeklyTimeFile       = "weekly_time.png"
)

const (
	topBars      = 10
	histogramBin = 20
)

// Renderer draws one chart from t into dir and returns the files written.
// It writes nothing and returns no error when t lacks the columns it needs
// or the aggregate is empty.
type Renderer func(t *table.Table, dir string) ([]string, error)

// Chart is a named renderer
type Chart struct {
	Name   string
	Render Renderer
}

// All lists every chart in the order they are rendered sequentially
var All = []Chart{
	{Name: "activity_counts", Render: ActivityCounts},
	{Name: "distance_over_time", Render: DistanceOverTime},
	{Name: "heart_rate_hist", Render: HeartRateHist},
	{Name: "median_duration_by_sport", Render: MedianDurationBySport},
	{Name: "hr_zone_distribution", Render: HRZoneDistribution},
	{Name: "weekly_totals", Render: WeeklyTotals},
}

func one(path string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// ActivityCounts draws the ten most common sport groups
func ActivityCounts(t *table.Table, dir string) ([]string, error) {
	if !t.Has(analysis.ColSportGroup) {
		return nil, nil
	}
	counts := analysis.CountBySport(t)
	if len(counts) == 0 {
		return nil, nil
	}
	if len(counts) > topBars {
		counts = counts[:topBars]
	}

	labels := make([]string, len(counts))
	values := make([]float64, len(counts))
	for i, c := range counts {
		labels[i] = c.Sport
		values[i] = float64(c.Count)
	}

	p, err := barPlot("Activity Count by Sport", "Count", labels, values, blue)
	if err != nil {
		return nil, err
	}
	return one(save(p, dir, ActivityCountsFile, 8*vg.Inch, 5*vg.Inch))
}

// DistanceOverTime draws miles per calendar day
func DistanceOverTime(t *table.Table, dir string) ([]string, error) {
	daily := analysis.DailyDistance(t)
	if len(daily) == 0 {
		return nil, nil
	}

	p, err := timeLinePlot("Distance per Day (miles)", "Date", "Miles", datePoints(daily), orange)
	if err != nil {
		return nil, err
	}
	return one(save(p, dir, DistanceOverTimeFile, 10*vg.Inch, 4*vg.Inch))
}

// HeartRateHist draws the distribution of average heart rate
func HeartRateHist(t *table.Table, dir string) ([]string, error) {
	col, ok := t.Column(analysis.ColAvgHR)
	if !ok {
		return nil, nil
	}
	values := table.Floats(col)
	if len(values) == 0 {
		return nil, nil
	}

	p := newPlot("Average Heart Rate Distribution", "BPM", "Count")
	h, err := plotter.NewHist(plotter.Values(values), histogramBin)
	if err != nil {
		return nil, fmt.Errorf("building histogram: %w", err)
	}
	h.FillColor = green
	p.Add(h)

	return one(save(p, dir, HeartRateHistFile, 8*vg.Inch, 4*vg.Inch))
}

// MedianDurationBySport draws the ten sport groups with the longest median duration
func MedianDurationBySport(t *table.Table, dir string) ([]string, error) {
	medians := analysis.MedianDurationBySport(t)
	if len(medians) == 0 {
		return nil, nil
	}
	if len(medians) > topBars {
		medians = medians[:topBars]
	}

	labels := make([]string, len(medians))
	values := make([]float64, len(medians))
	for i, m := range medians {
		labels[i] = m.Group
		values[i] = m.Value
	}

	p, err := barPlot("Median Duration by Sport (minutes)", "Minutes", labels, values, yellow)
	if err != nil {
		return nil, err
	}
	return one(save(p, dir, MedianDurationFile, 8*vg.Inch, 5*vg.Inch))
}

// HRZoneDistribution draws total minutes per heart-rate zone
func HRZoneDistribution(t *table.Table, dir string) ([]string, error) {
	zones := analysis.ZoneMinutes(t)
	if len(zones) == 0 {
		return nil, nil
	}

	labels := make([]string, len(zones))
	values := make([]float64, len(zones))
	for i, z := range zones {
		labels[i] = fmt.Sprintf("Zone %d", z.Zone)
		values[i] = z.Minutes
	}

	p, err := barPlot("Total Time in Heart Rate Zones", "Minutes", labels, values, purple)
	if err != nil {
		return nil, err
	}
	return one(save(p, dir, HRZoneFile, 8*vg.Inch, 4*vg.Inch))
}

// WeeklyTotals draws weekly distance and weekly time, each when its column is present
func WeeklyTotals(t *table.Table, dir string) ([]string, error) {
	var paths []string

	if weeks := analysis.WeeklyTotals(t, analysis.ColDistanceMi); len(weeks) > 0 {
		p, err := timeLinePlot("Weekly Distance (miles)", "Week starting", "Miles", datePoints(weeks), blue)
		if err != nil {
			return paths, err
		}
		path, err := save(p, dir, WeeklyDistanceFile, 10*vg.Inch, 4*vg.Inch)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if weeks := analysis.WeeklyTotals(t, analysis.ColDuration); len(weeks) > 0 {
		p, err := timeLinePlot("Weekly Time (minutes)", "Week starting", "Minutes", datePoints(weeks), orange)
		if err != nil {
			return paths, err
		}
		path, err := save(p, dir, WeeklyTimeFile, 10*vg.Inch, 4*vg.Inch)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func datePoints(points []analysis.DatePoint) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = float64(pt.Date.Unix())
		xys[i].Y = pt.Value
	}
	return xys
}
