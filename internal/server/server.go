package server

import (
	"context"
	"fmt"

	"github.com/joshdurbin/activity-export/internal/analysis"
	"github.com/joshdurbin/activity-export/internal/db"
	"github.com/joshdurbin/activity-export/internal/logging"
	"github.com/joshdurbin/activity-export/internal/table"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

const (
	serverName    = "activity-export"
	serverVersion = "1.0.0"
)

// Accepted year range for tool inputs. Zero means every year.
const (
	minYear = 1900
	maxYear = 2100
)

// ptr returns a pointer to the given value - useful for optional fields in structs
func ptr[T any](v T) *T {
	return &v
}

// Querier defines the interface for database queries
type Querier interface {
	GetActivity(ctx context.Context, activityID int64) (db.Activity, error)
	ListActivities(ctx context.Context, year int64) ([]db.Activity, error)
	ListZoneTimes(ctx context.Context, year int64) ([]db.HrZoneTime, error)
	CountActivities(ctx context.Context) (int64, error)
	GetLatestPipelineRun(ctx context.Context) (db.PipelineRun, error)
}

// Server wraps the MCP server and database queries
type Server struct {
	mcp     *mcp.Server
	queries Querier
}

// MCPServer returns the underlying MCP server (for use with HTTP/SSE transport)
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// New creates a new MCP server over the activity cache
func New(queries Querier) *Server {
	logging.Info("MCP server initializing", "name", serverName, "version", serverVersion)

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	s := &Server{
		mcp:     mcpServer,
		queries: queries,
	}

	logging.Debug("Registering MCP tools")
	s.registerTools()

	logging.Debug("Registering MCP resources")
	s.registerResources()

	logging.Debug("Registering MCP prompts")
	s.registerPrompts()

	logging.Info("MCP server initialized", "tools_registered", 4, "resources_registered", 2, "prompts_registered", 2)
	return s
}

// Run starts the MCP server over stdio transport
func (s *Server) Run(ctx context.Context) error {
	logging.Info("MCP server starting")
	defer logging.Info("MCP server stopped")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func readOnly(title string) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:           title,
		ReadOnlyHint:    true,
		IdempotentHint:  true,
		OpenWorldHint:   ptr(false),
		DestructiveHint: ptr(false),
	}
}

func (s *Server) registerTools() {
	logging.Debug("Registering tool", "name", "get_summary_stats")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_summary_stats",
		Description: `Get the headline statistics of the cleaned activity export.

Use when:
- User asks "How far did I go this year?" or "Give me my stats for 2024"
- User wants totals, medians, heart rate figures or the most common sports

Parameters:
- year (integer): Only include activities that started in this year. Omit or 0 for all years.
- include_containers (boolean): Keep multisport wrapper activities in the totals. Default: false.

Returns: activity count, date range, total and median miles, total hours, median duration in minutes,
total calories, average and max heart rate, top 5 sports, plus short insights.

Example: {"year": 2025}`,
		Annotations: readOnly("Get Summary Stats"),
	}, s.getSummaryStats)

	logging.Debug("Registering tool", "name", "count_by_sport")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "count_by_sport",
		Description: `Count activities per sport group, most frequent first.

Use when:
- User asks "What do I do most?" or "How many rides did I log?"

Parameters:
- year (integer): Only include activities that started in this year. Omit or 0 for all years.
- include_containers (boolean): Count multisport wrapper activities too. Default: false.

Returns: total count and per sport group counts. TRAINING is reported as FITNESS_EQUIPMENT.

Example: {"year": 2024}`,
		Annotations: readOnly("Count By Sport"),
	}, s.countBySport)

	logging.Debug("Registering tool", "name", "get_weekly_totals")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_weekly_totals",
		Description: `Get weekly totals of distance or time, weeks starting on Monday.

Use when:
- User asks "How consistent was my training?" or "What was my biggest week?"

Parameters:
- year (integer): Only include activities that started in this year. Omit or 0 for all years.
- metric (string): "distance" (miles) or "duration" (minutes). Default: "distance".

Returns: one entry per week with activity data, in chronological order, plus the peak week.

Example: {"year": 2025, "metric": "duration"}`,
		Annotations: readOnly("Get Weekly Totals"),
	}, s.getWeeklyTotals)

	logging.Debug("Registering tool", "name", "get_hr_zones")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_hr_zones",
		Description: `Get total minutes spent in each heart rate zone.

Use when:
- User asks "How hard did I train?" or "How much time did I spend in zone 2?"

Parameters:
- year (integer): Only include activities that started in this year. Omit or 0 for all years.

Returns: minutes and share of total per zone, ordered by zone number.

Example: {"year": 2025}`,
		Annotations: readOnly("Get Heart Rate Zones"),
	}, s.getHRZones)
}

// Tool input/output types

// SummaryStatsInput - input for get_summary_stats
type SummaryStatsInput struct {
	Year              int  `json:"year,omitempty" jsonschema:"Only include activities that started in this year. Omit or 0 for all years."`
	IncludeContainers bool `json:"include_containers,omitempty" jsonschema:"Keep multisport wrapper activities in the totals. Default: false."`
}

// SummaryStatsOutput - output for get_summary_stats
type SummaryStatsOutput struct {
	Year     int              `json:"year,omitempty"`
	Summary  analysis.Summary `json:"summary"`
	Insights []Insight        `json:"insights,omitempty"`
}

// CountBySportInput - input for count_by_sport
type CountBySportInput struct {
	Year              int  `json:"year,omitempty" jsonschema:"Only include activities that started in this year. Omit or 0 for all years."`
	IncludeContainers bool `json:"include_containers,omitempty" jsonschema:"Count multisport wrapper activities too. Default: false."`
}

// CountBySportOutput - output for count_by_sport
type CountBySportOutput struct {
	Year    int                   `json:"year,omitempty"`
	Total   int                   `json:"total"`
	BySport []analysis.SportCount `json:"by_sport"`
}

// WeeklyTotalsInput - input for get_weekly_totals
type WeeklyTotalsInput struct {
	Year   int    `json:"year,omitempty" jsonschema:"Only include activities that started in this year. Omit or 0 for all years."`
	Metric string `json:"metric,omitempty" jsonschema:"Valid values: distance (miles), duration (minutes). Default: distance."`
}

// WeekTotal is one Monday-anchored week
type WeekTotal struct {
	WeekStart string  `json:"week_start"`
	Value     float64 `json:"value"`
}

// WeeklyTotalsOutput - output for get_weekly_totals
type WeeklyTotalsOutput struct {
	Year     int         `json:"year,omitempty"`
	Metric   string      `json:"metric"`
	Unit     string      `json:"unit"`
	Weeks    []WeekTotal `json:"weeks"`
	PeakWeek *WeekTotal  `json:"peak_week,omitempty"`
	Insights []Insight   `json:"insights,omitempty"`
}

// HRZonesInput - input for get_hr_zones
type HRZonesInput struct {
	Year int `json:"year,omitempty" jsonschema:"Only include activities that started in this year. Omit or 0 for all years."`
}

// ZoneShare is the time spent in one zone
type ZoneShare struct {
	Zone    int     `json:"zone"`
	Minutes float64 `json:"minutes"`
	Percent float64 `json:"percent"`
}

// HRZonesOutput - output for get_hr_zones
type HRZonesOutput struct {
	Year         int         `json:"year,omitempty"`
	TotalMinutes float64     `json:"total_minutes"`
	Zones        []ZoneShare `json:"zones"`
	Insights     []Insight   `json:"insights,omitempty"`
}

// metrics accepted by get_weekly_totals, mapped to their column and unit
var weeklyMetrics = map[string]struct {
	column string
	unit   string
}{
	"distance": {column: analysis.ColDistanceMi, unit: "miles"},
	"duration": {column: analysis.ColDuration, unit: "minutes"},
}

func validateYear(year int) error {
	if year == 0 {
		return nil
	}
	if year < minYear || year > maxYear {
		return invalidYear(year)
	}
	return nil
}

// loadTable rebuilds the analysis table for year from the cache, dropping
// container activities unless asked not to, and applies sport groups. A year
// with no cached activities is NOT_FOUND.
func (s *Server) loadTable(ctx context.Context, year int, includeContainers, withZones bool) (*table.Table, error) {
	activities, err := s.queries.ListActivities(ctx, int64(year))
	if err != nil {
		logging.Error("ListActivities failed", "year", year, "error", err)
		return nil, databaseError("list activities", err)
	}

	if year != 0 && len(activities) == 0 {
		return nil, notFound("activities", fmt.Sprintf("year=%d", year))
	}

	var zones []db.HrZoneTime
	if withZones {
		zones, err = s.queries.ListZoneTimes(ctx, int64(year))
		if err != nil {
			logging.Error("ListZoneTimes failed", "year", year, "error", err)
			return nil, databaseError("list zone times", err)
		}
	}

	t := buildTable(activities, zones)
	if !includeContainers {
		t = analysis.DropContainers(t)
	}
	return analysis.ApplySportGroups(t), nil
}

func (s *Server) getSummaryStats(ctx context.Context, req *mcp.CallToolRequest, input SummaryStatsInput) (*mcp.CallToolResult, SummaryStatsOutput, error) {
	logging.Info("MCP tool call", "tool", "get_summary_stats", "year", input.Year, "include_containers", input.IncludeContainers)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "get_summary_stats", "input", logging.ToJSON(input))
	}

	if err := validateYear(input.Year); err != nil {
		return nil, SummaryStatsOutput{}, err
	}

	t, err := s.loadTable(ctx, input.Year, input.IncludeContainers, false)
	if err != nil {
		return nil, SummaryStatsOutput{}, err
	}

	summary := analysis.ComputeStats(t)
	return nil, SummaryStatsOutput{
		Year:     input.Year,
		Summary:  summary,
		Insights: summaryInsights(summary),
	}, nil
}

func (s *Server) countBySport(ctx context.Context, req *mcp.CallToolRequest, input CountBySportInput) (*mcp.CallToolResult, CountBySportOutput, error) {
	logging.Info("MCP tool call", "tool", "count_by_sport", "year", input.Year, "include_containers", input.IncludeContainers)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "count_by_sport", "input", logging.ToJSON(input))
	}

	if err := validateYear(input.Year); err != nil {
		return nil, CountBySportOutput{}, err
	}

	t, err := s.loadTable(ctx, input.Year, input.IncludeContainers, false)
	if err != nil {
		return nil, CountBySportOutput{}, err
	}

	counts := analysis.CountBySport(t)
	if counts == nil {
		counts = []analysis.SportCount{}
	}
	return nil, CountBySportOutput{
		Year:    input.Year,
		Total:   t.Len(),
		BySport: counts,
	}, nil
}

func (s *Server) getWeeklyTotals(ctx context.Context, req *mcp.CallToolRequest, input WeeklyTotalsInput) (*mcp.CallToolResult, WeeklyTotalsOutput, error) {
	logging.Info("MCP tool call", "tool", "get_weekly_totals", "year", input.Year, "metric", input.Metric)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "get_weekly_totals", "input", logging.ToJSON(input))
	}

	if err := validateYear(input.Year); err != nil {
		return nil, WeeklyTotalsOutput{}, err
	}

	metric := input.Metric
	if metric == "" {
		metric = "distance"
	}
	m, ok := weeklyMetrics[metric]
	if !ok {
		return nil, WeeklyTotalsOutput{}, invalidInput("unknown metric", fmt.Sprintf("metric=%q, expected distance or duration", input.Metric))
	}

	t, err := s.loadTable(ctx, input.Year, false, false)
	if err != nil {
		return nil, WeeklyTotalsOutput{}, err
	}

	output := WeeklyTotalsOutput{
		Year:   input.Year,
		Metric: metric,
		Unit:   m.unit,
		Weeks:  []WeekTotal{},
	}
	weeks := analysis.WeeklyTotals(t, m.column)
	values := make([]float64, len(weeks))
	for i, w := range weeks {
		values[i] = scalar.Round(w.Value, 2)
		output.Weeks = append(output.Weeks, WeekTotal{WeekStart: w.Date.Format("2006-01-02"), Value: values[i]})
	}
	if len(values) > 0 {
		output.PeakWeek = ptr(output.Weeks[floats.MaxIdx(values)])
	}
	output.Insights = weeklyInsights(output.Weeks, m.unit)

	return nil, output, nil
}

func (s *Server) getHRZones(ctx context.Context, req *mcp.CallToolRequest, input HRZonesInput) (*mcp.CallToolResult, HRZonesOutput, error) {
	logging.Info("MCP tool call", "tool", "get_hr_zones", "year", input.Year)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "get_hr_zones", "input", logging.ToJSON(input))
	}

	if err := validateYear(input.Year); err != nil {
		return nil, HRZonesOutput{}, err
	}

	t, err := s.loadTable(ctx, input.Year, false, true)
	if err != nil {
		return nil, HRZonesOutput{}, err
	}

	totals := analysis.ZoneMinutes(t)
	minutes := make([]float64, len(totals))
	for i, z := range totals {
		minutes[i] = z.Minutes
	}
	total := floats.Sum(minutes)

	output := HRZonesOutput{Year: input.Year, Zones: []ZoneShare{}, TotalMinutes: scalar.Round(total, 1)}
	for _, z := range totals {
		share := ZoneShare{Zone: z.Zone, Minutes: scalar.Round(z.Minutes, 1)}
		if total > 0 {
			share.Percent = scalar.Round(z.Minutes/total*100, 1)
		}
		output.Zones = append(output.Zones, share)
	}
	output.Insights = zoneInsights(output.Zones)

	return nil, output, nil
}
