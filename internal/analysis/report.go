package analysis

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Entry is one line of the console report
type Entry struct {
	Key   string
	Value string
}

// Entries renders the summary as ordered key/value pairs, skipping absent statistics
func (s Summary) Entries() []Entry {
	p := message.NewPrinter(language.English)

	entries := []Entry{{"activity_count", p.Sprintf("%d", s.ActivityCount)}}
	add := func(key, value string) {
		entries = append(entries, Entry{Key: key, Value: value})
	}

	if s.DateRange != nil {
		add("date_range", fmt.Sprintf("(%s, %s)", s.DateRange.Start, s.DateRange.End))
	}
	if s.TotalMiles != nil {
		add("total_miles", p.Sprintf("%.2f", *s.TotalMiles))
	}
	if s.MedianMiles != nil {
		add("median_miles", p.Sprintf("%.2f", *s.MedianMiles))
	}
	if s.TotalHours != nil {
		add("total_hours", p.Sprintf("%.2f", *s.TotalHours))
	}
	if s.MedianDurationMin != nil {
		add("median_duration_min", p.Sprintf("%.2f", *s.MedianDurationMin))
	}
	if s.TotalCalories != nil {
		add("total_calories", p.Sprintf("%d", *s.TotalCalories))
	}
	if s.AvgHeartRate != nil {
		add("avg_heart_rate", p.Sprintf("%.1f", *s.AvgHeartRate))
	}
	if s.MaxHeartRate != nil {
		add("max_heart_rate", p.Sprintf("%d", *s.MaxHeartRate))
	}
	if s.TopSports != nil {
		parts := make([]string, len(s.TopSports))
		for i, sc := range s.TopSports {
			parts[i] = p.Sprintf("%s: %d", sc.Sport, sc.Count)
		}
		add("top_sports", "{"+strings.Join(parts, ", ")+"}")
	}
	return entries
}

// PrintReport writes the key stats followed by the chart directory
func PrintReport(w io.Writer, s Summary, figureDir string) error {
	var b strings.Builder
	b.WriteString("Key stats:\n")
	for _, e := range s.Entries() {
		fmt.Fprintf(&b, "- %s: %s\n", e.Key, e.Value)
	}
	fmt.Fprintf(&b, "\nCharts saved to %s\n", figureDir)

	_, err := io.WriteString(w, b.String())
	return err
}
