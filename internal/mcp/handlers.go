package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/sense/internal/batch"
	"github.com/nvandessel/sense/internal/metric"
	"github.com/nvandessel/sense/internal/models"
	"github.com/nvandessel/sense/internal/ratelimit"
	"github.com/nvandessel/sense/internal/sanitize"
	"github.com/nvandessel/sense/internal/store"
)

const (
	summaryURI     = "sense://scores/summary"
	scenarioPrefix = "sense://scores/"
)

// registerTools registers all sense MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sense_list_scores",
		Description: "List the headline scores of finished scenarios (goal completion per dimension and judge, info reasoning)",
	}, s.handleListScores)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sense_get_score",
		Description: "Get the full evaluation record of one scenario, optionally with its dialogue transcript",
	}, s.handleGetScore)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sense_template_report",
		Description: "Aggregate stored scores per scenario template (mean and sample standard deviation)",
	}, s.handleTemplateReport)
}

// registerResources registers MCP resources for loading into context.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         summaryURI,
		Name:        "sense-score-summary",
		Description: "One line per finished scenario plus the scenario-level means.",
		MIMEType:    "text/markdown",
	}, s.handleSummaryResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: scenarioPrefix + "{scenario_id}",
		Name:        "sense-scenario",
		Description: "Scores and dialogue transcript of one scenario.",
		MIMEType:    "text/markdown",
	}, s.handleScenarioResource)
}

func (s *Server) handleListScores(ctx context.Context, req *sdk.CallToolRequest, args ListScoresInput) (_ *sdk.CallToolResult, _ ListScoresOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sense_list_scores", start, retErr, sanitizeToolParams(map[string]any{
			"template": args.Template, "limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "sense_list_scores"); err != nil {
		return nil, ListScoresOutput{}, err
	}
	if args.Limit < 0 {
		return nil, ListScoresOutput{}, fmt.Errorf("limit must be non-negative, got %d", args.Limit)
	}

	scores, err := s.scores(ctx, args.Template)
	if err != nil {
		return nil, ListScoresOutput{}, err
	}
	if args.Limit > 0 && len(scores) > args.Limit {
		scores = scores[:args.Limit]
	}

	return nil, ListScoresOutput{
		Scores:  scores,
		Count:   len(scores),
		Summary: metric.Summarize(scores),
	}, nil
}

func (s *Server) handleGetScore(ctx context.Context, req *sdk.CallToolRequest, args GetScoreInput) (_ *sdk.CallToolResult, _ GetScoreOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sense_get_score", start, retErr, sanitizeToolParams(map[string]any{
			"scenario_id": args.ScenarioID, "transcript": args.Transcript,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "sense_get_score"); err != nil {
		return nil, GetScoreOutput{}, err
	}
	if strings.TrimSpace(args.ScenarioID) == "" {
		return nil, GetScoreOutput{}, fmt.Errorf("scenario_id is required")
	}

	rec, err := s.record(ctx, args.ScenarioID)
	if err != nil {
		return nil, GetScoreOutput{}, err
	}

	out := GetScoreOutput{
		ScenarioID:  rec.ScenarioID.String(),
		TemplateID:  rec.TemplateID,
		RunID:       rec.RunID,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
		Score:       metric.ScoreOf(rec),
		GoalAnswers: rec.GoalAnswers,
		InfoResults: rec.InfoResults,
	}
	if gm := rec.GoalMetrics; gm != nil {
		out.JudgeAvg = gm.JudgeAvg
		out.JudgeMajority = gm.JudgeMajority
	}
	if args.Transcript {
		out.Transcript = make([]TurnItem, 0, len(rec.ChatHistory))
		for _, m := range rec.ChatHistory {
			out.Transcript = append(out.Transcript, TurnItem{
				Speaker: sanitize.Speaker(m.Name),
				Content: sanitize.Message(m.Content),
			})
		}
	}
	return nil, out, nil
}

func (s *Server) handleTemplateReport(ctx context.Context, req *sdk.CallToolRequest, args TemplateReportInput) (_ *sdk.CallToolResult, _ TemplateReportOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sense_template_report", start, retErr, sanitizeToolParams(map[string]any{
			"template": args.Template,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "sense_template_report"); err != nil {
		return nil, TemplateReportOutput{}, err
	}

	scores, err := s.scores(ctx, args.Template)
	if err != nil {
		return nil, TemplateReportOutput{}, err
	}
	report := metric.AggregateTemplates(scores)
	templates := report.Templates
	if templates == nil {
		templates = []metric.TemplateStats{}
	}
	return nil, TemplateReportOutput{
		Templates: templates,
		Overall:   report.Overall,
		Count:     len(templates),
	}, nil
}

// handleSummaryResource lists every stored scenario in the batch log format.
func (s *Server) handleSummaryResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	scores, err := s.scores(ctx, "")
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("# Scenario Scores\n\n")
	if len(scores) == 0 {
		sb.WriteString("No finished scenarios yet. Run `sense run` to simulate and evaluate a dataset.\n")
	} else {
		for _, sc := range scores {
			sb.WriteString("- " + batch.SceneLine(sc) + "\n")
		}
		sum := metric.Summarize(scores)
		fmt.Fprintf(&sb, "\n## Summary (%d scenarios)\n\n", sum.Scenarios)
		sb.WriteString("- " + batch.SceneLine(metric.ScenarioScore{
			ScenarioID: "average",
			Self:       sum.Self,
			Others:     sum.Others,
			Judges:     sum.Judges,
			Info:       sum.Info,
		}) + "\n")
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      summaryURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// handleScenarioResource renders one record with its transcript.
// URI format: sense://scores/{scenario_id}
func (s *Server) handleScenarioResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, scenarioPrefix) {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	id := strings.TrimPrefix(uri, scenarioPrefix)
	if id == "" {
		return nil, fmt.Errorf("scenario id is required")
	}

	rec, err := s.record(ctx, id)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Scenario %s\n\n", rec.ScenarioID)
	if rec.TemplateID != "" {
		fmt.Fprintf(&sb, "Template: %s\n\n", rec.TemplateID)
	}
	sb.WriteString(batch.SceneLine(metric.ScoreOf(rec)) + "\n\n## Dialogue\n\n")
	for _, m := range rec.ChatHistory {
		fmt.Fprintf(&sb, "**%s**: %s\n\n", sanitize.Speaker(m.Name), sanitize.Message(m.Content))
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

func (s *Server) scores(ctx context.Context, template string) ([]metric.ScenarioScore, error) {
	all, err := store.Scores(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}
	out := make([]metric.ScenarioScore, 0, len(all))
	for _, sc := range all {
		if template == "" || sc.TemplateID == template {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *Server) record(ctx context.Context, id string) (*models.ScoreRecord, error) {
	rec, err := s.store.Get(ctx, models.ScenarioID(id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("scenario not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return rec, nil
}
