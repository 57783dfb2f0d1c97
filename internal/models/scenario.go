// Package models holds the scenario and score record types shared
// across sense, along with its typed errors.
package models

import (
	"fmt"
	"slices"
)

// MarkStyle is the alphabet used to label and parse multiple-choice options.
type MarkStyle string

const (
	MarkAll    MarkStyle = "all"    // any of the alphabets below
	MarkUpper  MarkStyle = "upper"  // (A) (B) (C)
	MarkLower  MarkStyle = "lower"  // (a) (b) (c)
	MarkNumber MarkStyle = "number" // (1) (2) (3)
)

// Valid reports whether s is a supported marker style.
func (s MarkStyle) Valid() bool {
	switch s {
	case MarkAll, MarkUpper, MarkLower, MarkNumber:
		return true
	}
	return false
}

// Dimension is the evaluator role of a goal question.
type Dimension string

const (
	DimensionSelf   Dimension = "self"   // the goal owner assesses itself
	DimensionOthers Dimension = "others" // another actor assesses the goal owner
	DimensionJudge  Dimension = "judge"  // every judge actor assesses, in parallel
)

// Dimensions lists the supported dimensions in evaluation order.
var Dimensions = []Dimension{DimensionSelf, DimensionOthers, DimensionJudge}

// Valid reports whether d is a supported dimension.
func (d Dimension) Valid() bool {
	return slices.Contains(Dimensions, d)
}

// EvalQuestion is one goal-evaluation question.
type EvalQuestion struct {
	Question Prompt `json:"question" yaml:"question"`

	// Target is the actor interviewed for the "others" dimension.
	Target string `json:"obj,omitempty" yaml:"obj,omitempty"`
}

// Goal is a private social goal of one actor together with the questions
// used to judge whether it was achieved.
type Goal struct {
	Goal          string                       `json:"goal" yaml:"goal"`
	EvalQuestions map[Dimension][]EvalQuestion `json:"eval_questions" yaml:"eval_questions"`
}

// InfoQuestion is a multiple-choice question about private information
// held by another actor.
type InfoQuestion struct {
	Question    string   `json:"question" yaml:"question"`
	Options     []string `json:"options" yaml:"options"`
	AnswerLabel int      `json:"answer_label" yaml:"answer_label"`

	// Rendered is the question with letter-labelled options, produced once
	// at configuration time.
	Rendered string `json:"question_with_options,omitempty" yaml:"question_with_options,omitempty"`
}

// Scenario is the immutable description of one simulation instance.
type Scenario struct {
	ID            ScenarioID                `json:"scene_id" yaml:"scene_id"`
	TemplateID    string                    `json:"template_id,omitempty" yaml:"template_id,omitempty"`
	Background    string                    `json:"background" yaml:"background"`
	Description   string                    `json:"desc" yaml:"desc"`
	Goals         map[string][]Goal         `json:"goal_question" yaml:"goal_question"`
	InfoQuestions map[string][]InfoQuestion `json:"info_question" yaml:"info_question"`
	MarkStyle     MarkStyle                 `json:"option_mark" yaml:"option_mark"`
}

// Validate checks the scenario against the names of its dialogue actors.
// Every violation is a *ConfigurationError.
func (s *Scenario) Validate(actors []string) error {
	if s.ID == "" {
		return &ConfigurationError{Field: "scene_id", Reason: "missing"}
	}
	if !s.MarkStyle.Valid() {
		return s.configErr("option_mark", fmt.Sprintf("unsupported marker style %q (valid: all, upper, lower, number)", s.MarkStyle))
	}

	for owner, goals := range s.Goals {
		if !slices.Contains(actors, owner) {
			return s.configErr("goal_question", fmt.Sprintf("goals listed for unknown actor %q", owner))
		}
		for _, g := range goals {
			for dim, questions := range g.EvalQuestions {
				if !dim.Valid() {
					return s.configErr("eval_questions", fmt.Sprintf("unsupported eval dimension %q", dim))
				}
				for i, q := range questions {
					if q.Question.Empty() {
						return s.configErr("eval_questions", fmt.Sprintf("%s/%s question %d is empty", owner, dim, i))
					}
					if dim == DimensionOthers {
						if q.Target == "" {
							return s.configErr("eval_questions", fmt.Sprintf("%s/others question %d has no target actor", owner, i))
						}
						if !slices.Contains(actors, q.Target) {
							return s.configErr("eval_questions", fmt.Sprintf("%s/others question %d targets unknown actor %q", owner, i, q.Target))
						}
					}
				}
			}
		}
	}

	for owner, questions := range s.InfoQuestions {
		if !slices.Contains(actors, owner) {
			return s.configErr("info_question", fmt.Sprintf("questions listed for unknown actor %q", owner))
		}
		for i, q := range questions {
			if len(q.Options) == 0 {
				return s.configErr("info_question", fmt.Sprintf("%s question %d has no options", owner, i))
			}
			if q.AnswerLabel < 0 || q.AnswerLabel >= len(q.Options) {
				return s.configErr("info_question", fmt.Sprintf("%s question %d answer_label %d out of range", owner, i, q.AnswerLabel))
			}
			if q.Rendered == "" {
				return s.configErr("info_question", fmt.Sprintf("%s question %d was never rendered", owner, i))
			}
		}
	}
	return nil
}

// HasInfoQuestions reports whether any actor has a private-info question.
func (s *Scenario) HasInfoQuestions() bool {
	for _, qs := range s.InfoQuestions {
		if len(qs) > 0 {
			return true
		}
	}
	return false
}

func (s *Scenario) configErr(field, reason string) error {
	return &ConfigurationError{Scenario: s.ID, Field: field, Reason: reason}
}
