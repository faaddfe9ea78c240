package server

import (
	"fmt"

	"github.com/joshdurbin/activity-export/internal/analysis"
)

// Insight represents a single AI-friendly insight about the data
type Insight struct {
	Type    string `json:"type"`    // e.g., "summary", "achievement", "warning", "suggestion"
	Message string `json:"message"` // Human-readable insight
}

// zones at or below this number count as easy effort
const easyZoneMax = 2

func summaryInsights(s analysis.Summary) []Insight {
	var insights []Insight

	if s.ActivityCount == 0 {
		return append(insights, Insight{
			Type:    "warning",
			Message: "No activities found. Run the export pipeline to populate the cache.",
		})
	}

	if len(s.TopSports) > 0 {
		top := s.TopSports[0]
		insights = append(insights, Insight{
			Type:    "summary",
			Message: fmt.Sprintf("Most frequent sport: %s (%d of %d activities)", top.Sport, top.Count, s.ActivityCount),
		})
	}

	if s.DateRange != nil && s.TotalMiles != nil && *s.TotalMiles > 0 {
		insights = append(insights, Insight{
			Type:    "summary",
			Message: fmt.Sprintf("Covered %.2f miles between %s and %s", *s.TotalMiles, s.DateRange.Start, s.DateRange.End),
		})
	}

	if s.TotalHours != nil && *s.TotalHours >= 100 {
		insights = append(insights, Insight{
			Type:    "achievement",
			Message: fmt.Sprintf("Over %d hours of training logged", int(*s.TotalHours)),
		})
	}

	if s.AvgHeartRate == nil {
		insights = append(insights, Insight{
			Type:    "suggestion",
			Message: "No heart rate data; get_hr_zones will be empty",
		})
	}

	return insights
}

func weeklyInsights(weeks []WeekTotal, unit string) []Insight {
	var insights []Insight
	if len(weeks) == 0 {
		return insights
	}

	active := 0
	for _, w := range weeks {
		if w.Value > 0 {
			active++
		}
	}
	insights = append(insights, Insight{
		Type:    "summary",
		Message: fmt.Sprintf("%d of %d weeks had recorded %s", active, len(weeks), unit),
	})

	if len(weeks) >= 2 {
		last, prev := weeks[len(weeks)-1], weeks[len(weeks)-2]
		if prev.Value > 0 {
			change := (last.Value - prev.Value) / prev.Value * 100
			insights = append(insights, Insight{
				Type:    "trend",
				Message: fmt.Sprintf("Week of %s changed %.1f%% from the week before", last.WeekStart, change),
			})
		}
	}
	return insights
}

func zoneInsights(zones []ZoneShare) []Insight {
	var insights []Insight
	if len(zones) == 0 {
		return append(insights, Insight{
			Type:    "warning",
			Message: "No heart rate zone data in the selected activities",
		})
	}

	easy := 0.0
	for _, z := range zones {
		if z.Zone <= easyZoneMax {
			easy += z.Percent
		}
	}
	switch {
	case easy >= 75:
		insights = append(insights, Insight{
			Type:    "summary",
			Message: fmt.Sprintf("%.0f%% of zone time was easy (zones 1-%d), a polarized distribution", easy, easyZoneMax),
		})
	case easy < 50:
		insights = append(insights, Insight{
			Type:    "suggestion",
			Message: fmt.Sprintf("Only %.0f%% of zone time was easy (zones 1-%d); consider more low intensity work", easy, easyZoneMax),
		})
	}
	return insights
}
