package mcp

import (
	"github.com/nvandessel/sense/internal/metric"
	"github.com/nvandessel/sense/internal/models"
)

// ListScoresInput defines the input for sense_list_scores tool.
type ListScoresInput struct {
	Template string `json:"template,omitempty" jsonschema:"Only scenarios generated from this template id"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of scenarios to return (default: all)"`
}

// ListScoresOutput defines the output for sense_list_scores tool.
type ListScoresOutput struct {
	Scores  []metric.ScenarioScore `json:"scores" jsonschema:"Headline scores ordered by scenario id"`
	Count   int                    `json:"count" jsonschema:"Number of scenarios returned"`
	Summary metric.Summary         `json:"summary" jsonschema:"Scenario-level means over the returned scenarios"`
}

// GetScoreInput defines the input for sense_get_score tool.
type GetScoreInput struct {
	ScenarioID string `json:"scenario_id" jsonschema:"Scenario id of the record"`
	Transcript bool   `json:"transcript,omitempty" jsonschema:"Include the dialogue transcript (default: false)"`
}

// GetScoreOutput defines the output for sense_get_score tool.
type GetScoreOutput struct {
	ScenarioID    string                         `json:"scenario_id"`
	TemplateID    string                         `json:"template_id,omitempty"`
	RunID         string                         `json:"run_id,omitempty"`
	CreatedAt     string                         `json:"created_at"`
	Score         metric.ScenarioScore           `json:"score"`
	JudgeAvg      *float64                       `json:"judge_avg,omitempty"`
	JudgeMajority *float64                       `json:"judge_majority,omitempty"`
	GoalAnswers   models.GoalAnswers             `json:"goal_answers,omitempty"`
	InfoResults   map[string][]models.InfoResult `json:"info_results,omitempty"`
	Transcript    []TurnItem                     `json:"transcript,omitempty"`
}

// TurnItem is one dialogue message.
type TurnItem struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

// TemplateReportInput defines the input for sense_template_report tool.
type TemplateReportInput struct {
	Template string `json:"template,omitempty" jsonschema:"Only report this template id (default: all)"`
}

// TemplateReportOutput defines the output for sense_template_report tool.
type TemplateReportOutput struct {
	Templates []metric.TemplateStats `json:"templates"`
	Overall   metric.TemplateStats   `json:"overall"`
	Count     int                    `json:"count" jsonschema:"Number of templates"`
}
