package server

import (
	"context"
	"fmt"

	"github.com/joshdurbin/activity-export/internal/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts registers all MCP prompts for the server
func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "year_in_review",
		Description: "Summarize a year of training from the activity export with highlights and trends",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "year",
				Description: "Year to review, e.g. '2025'. Leave empty for the whole export.",
				Required:    false,
			},
		},
	}, s.yearInReviewPrompt)

	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "intensity_check",
		Description: "Check how training time is spread across heart rate zones",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "year",
				Description: "Year to analyze, e.g. '2025'. Leave empty for the whole export.",
				Required:    false,
			},
		},
	}, s.intensityCheckPrompt)
}

func yearArgument(req *mcp.GetPromptRequest) (string, string) {
	if req != nil && req.Params != nil && req.Params.Arguments != nil {
		if y, ok := req.Params.Arguments["year"]; ok && y != "" {
			return y, fmt.Sprintf(`year=%s`, y)
		}
	}
	return "", "no year"
}

func (s *Server) yearInReviewPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	year, yearArg := yearArgument(req)
	period := "my whole activity history"
	if year != "" {
		period = year
	}

	logging.Info("MCP prompt requested", "prompt", "year_in_review", "year", year)

	promptText := fmt.Sprintf(`Please write a review of my training for %s.

Use the following tools to gather data:
1. **get_summary_stats** with %s for the headline numbers
2. **count_by_sport** with %s to see which sports dominated
3. **get_weekly_totals** with %s, once for distance and once for duration, to judge consistency
4. **get_hr_zones** with %s for the intensity distribution

Then provide:
- **Summary**: Activity count, total distance and time, average heart rate
- **Sports**: The top sports and how the mix looks
- **Consistency**: Peak weeks, gaps, and how steady the training was
- **Intensity**: Easy versus hard time across zones
- **Recommendations**: What to focus on next

Please be specific with numbers and use the actual data from the tools.`, period, yearArg, yearArg, yearArg, yearArg)

	return &mcp.GetPromptResult{
		Description: "Year in review prompt",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText},
			},
		},
	}, nil
}

func (s *Server) intensityCheckPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	year, yearArg := yearArgument(req)

	logging.Info("MCP prompt requested", "prompt", "intensity_check", "year", year)

	promptText := fmt.Sprintf(`Please analyze my training intensity.

1. Call **get_hr_zones** with %s to get minutes per heart rate zone
2. Call **get_summary_stats** with %s for average and max heart rate

Then explain:
- How much time went to easy (zones 1-2) versus hard (zones 4-5) effort
- Whether the distribution looks polarized, pyramidal, or threshold heavy
- One or two concrete adjustments for the coming weeks`, yearArg, yearArg)

	return &mcp.GetPromptResult{
		Description: "Training intensity prompt",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText},
			},
		},
	}, nil
}
