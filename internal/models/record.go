package models

import "time"

// GoalAnswers holds raw interview answers indexed actor -> goal -> dimension.
// Judge answers are stored per question in judge registration order.
type GoalAnswers map[string]map[string]map[Dimension][]string

// GoalScore is the score of one goal.
type GoalScore struct {
	Self   *float64 `json:"self,omitempty"`
	Others *float64 `json:"others,omitempty"`

	// Judge holds one score per judge actor in registration order, followed
	// by the mean across judges and the mode across judges.
	Judge []float64 `json:"judge,omitempty"`
}

// ActorGoalMetrics aggregates one actor's goal scores.
type ActorGoalMetrics struct {
	Goals         map[string]*GoalScore `json:"goals"`
	Self          *float64              `json:"self,omitempty"`
	Others        *float64              `json:"others,omitempty"`
	Judges        map[string]float64    `json:"judges,omitempty"`
	JudgeAvg      *float64              `json:"judge_avg,omitempty"`
	JudgeMajority *float64              `json:"judge_majority,omitempty"`
}

// GoalMetrics is the goal-completion score of a whole scenario.
// Nil fields mean no actor had that dimension.
type GoalMetrics struct {
	Actors        map[string]*ActorGoalMetrics `json:"actors"`
	JudgeNames    []string                     `json:"judge_names,omitempty"`
	Self          *float64                     `json:"self,omitempty"`
	Others        *float64                     `json:"others,omitempty"`
	Judges        map[string]float64           `json:"judges,omitempty"`
	JudgeAvg      *float64                     `json:"judge_avg,omitempty"`
	JudgeMajority *float64                     `json:"judge_majority,omitempty"`
}

// MatchKind tells which rule resolved a multiple-choice answer.
type MatchKind string

const (
	MatchMarker      MatchKind = "marker"       // bracketed marker such as (B)
	MatchSingle      MatchKind = "single"       // bare option letter, optionally followed by "."
	MatchOption      MatchKind = "option"       // answer text matched one option's text
	MatchFormatError MatchKind = "format_error" // nothing matched; scored 0
)

// InfoResult is the scored answer to one private-info question.
type InfoResult struct {
	Answer    string    `json:"answer"`
	Match     MatchKind `json:"match"`
	Predicted *int      `json:"predicted"`
	Correct   bool      `json:"correct"`
}

// InfoMetrics is the private-info reasoning score of a scenario.
type InfoMetrics struct {
	Actors map[string]float64 `json:"actors"`
	Avg    float64            `json:"avg"`
}

// ScoreRecord is the terminal artifact of one scenario run. It is written
// once and never mutated.
type ScoreRecord struct {
	ScenarioID  ScenarioID              `json:"scene_id"`
	TemplateID  string                  `json:"template_id,omitempty"`
	RunID       string                  `json:"run_id,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	ChatHistory Transcript              `json:"chat_history"`
	GoalAnswers GoalAnswers             `json:"goal_answer"`
	GoalMetrics *GoalMetrics            `json:"goal_metrics"`
	InfoAnswers map[string][]string     `json:"info_answer"`
	InfoResults map[string][]InfoResult `json:"info_results,omitempty"`
	InfoMetrics *InfoMetrics            `json:"info_metrics,omitempty"`
}
