package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joshdurbin/activity-export/internal/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	latestRunURI         = "activity-export://runs/latest"
	activityURITemplate  = "activity-export://activities/{id}"
	activityURIPrefix    = "activity-export://activities/"
	resourceMIMEType     = "application/json"
	noPipelineRunsResult = `{"error": "No pipeline runs found"}`
)

// registerResources registers all MCP resources for the server
func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         latestRunURI,
		Name:        "latest_pipeline_run",
		Description: "The most recent export pipeline run with its status and row counts",
		MIMEType:    resourceMIMEType,
	}, s.readLatestRun)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: activityURITemplate,
		Name:        "activity_by_id",
		Description: "Fetch a cached activity by its export activity ID",
		MIMEType:    resourceMIMEType,
	}, s.readActivityByID)

	logging.Debug("MCP resources registered", "count", 2)
}

// RunSummary is the JSON form of a pipeline run
type RunSummary struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Output       string `json:"output,omitempty"`
	Status       string `json:"status"`
	RowCount     int64  `json:"row_count"`
	ColumnCount  int64  `json:"column_count"`
	SkippedCount int64  `json:"skipped_count"`
	Error        string `json:"error,omitempty"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
	Activities   int64  `json:"cached_activities"`
}

func (s *Server) readLatestRun(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	logging.Info("MCP resource read", "resource", "latest_pipeline_run")

	run, err := s.queries.GetLatestPipelineRun(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return textResource(latestRunURI, noPipelineRunsResult), nil
		}
		logging.Error("readLatestRun failed", "error", err)
		return nil, databaseError("get latest pipeline run", err)
	}

	count, err := s.queries.CountActivities(ctx)
	if err != nil {
		logging.Error("readLatestRun failed", "error", err)
		return nil, databaseError("count activities", err)
	}

	summary := RunSummary{
		ID:           run.ID,
		Source:       run.Source,
		Output:       run.Output.String,
		Status:       run.Status,
		RowCount:     run.RowCount,
		ColumnCount:  run.ColumnCount,
		SkippedCount: run.SkippedCount,
		Error:        run.Error.String,
		StartedAt:    formatTime(sql.NullTime{Time: run.StartedAt, Valid: true}),
		FinishedAt:   formatTime(run.FinishedAt),
		Activities:   count,
	}
	return jsonResource(latestRunURI, summary)
}

func (s *Server) readActivityByID(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	idStr := strings.TrimPrefix(uri, activityURIPrefix)
	if idStr == uri || idStr == "" {
		return nil, invalidInput("invalid activity URI format", uri)
	}

	activityID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, invalidInput("invalid activity ID", idStr)
	}

	logging.Info("MCP resource read", "resource", "activity_by_id", "id", activityID)

	activity, err := s.queries.GetActivity(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return textResource(uri, fmt.Sprintf(`{"error": "Activity %d not found"}`, activityID)), nil
		}
		logging.Error("readActivityByID failed", "id", activityID, "error", err)
		return nil, databaseError("get activity", err)
	}

	return jsonResource(uri, convertActivity(activity))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, internalError("failed to marshal resource", err)
	}
	return textResource(uri, string(data)), nil
}

func textResource(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: resourceMIMEType,
				Text:     text,
			},
		},
	}
}
