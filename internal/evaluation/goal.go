package evaluation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/sense/internal/models"
	"github.com/nvandessel/sense/internal/telemetry"
)

// GoalEvaluator collects raw answers to every goal question of a scenario.
type GoalEvaluator struct {
	Interviewer *Interviewer
}

// Evaluate walks the participants in registration order, each goal in
// order and each dimension in canonical order. Self questions go to the
// goal owner, others questions to their target, and judge questions to
// every judge at once.
//
// Judge answers are stored question by question, each block in judge
// registration order.
func (e *GoalEvaluator) Evaluate(ctx context.Context, scenario *models.Scenario, transcript models.Transcript) (answers models.GoalAnswers, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "evaluation.goals")
	span.SetAttributes(attribute.String("scenario.id", scenario.ID.String()))
	defer func() { telemetry.End(span, err) }()

	iv := e.Interviewer
	answers = make(models.GoalAnswers)
	for _, owner := range iv.Registry.ParticipantNames() {
		goals, ok := scenario.Goals[owner]
		if !ok {
			continue
		}
		byGoal := make(map[string]map[models.Dimension][]string, len(goals))
		for _, g := range goals {
			dims, err := e.evaluateGoal(ctx, scenario.ID, owner, g, transcript)
			if err != nil {
				return nil, fmt.Errorf("goal %q of %s: %w", g.Goal, owner, err)
			}
			byGoal[g.Goal] = dims
		}
		answers[owner] = byGoal
	}
	return answers, nil
}

func (e *GoalEvaluator) evaluateGoal(ctx context.Context, id models.ScenarioID, owner string, g models.Goal, transcript models.Transcript) (map[models.Dimension][]string, error) {
	for dim := range g.EvalQuestions {
		if !dim.Valid() {
			return nil, &models.ConfigurationError{Scenario: id, Field: "eval_questions", Reason: fmt.Sprintf("unsupported eval dimension %q", dim)}
		}
	}

	iv := e.Interviewer
	out := make(map[models.Dimension][]string, len(g.EvalQuestions))
	for _, dim := range models.Dimensions {
		questions, ok := g.EvalQuestions[dim]
		if !ok {
			continue
		}
		res := make([]string, 0, len(questions))
		for _, q := range questions {
			switch dim {
			case models.DimensionSelf:
				ans, err := iv.ask(ctx, owner, q.Question, transcript, string(dim))
				if err != nil {
					return nil, err
				}
				res = append(res, ans)
			case models.DimensionOthers:
				if q.Target == "" {
					return nil, &models.ConfigurationError{Scenario: id, Field: "eval_questions", Reason: "others question without target actor"}
				}
				ans, err := iv.ask(ctx, q.Target, q.Question, transcript, string(dim))
				if err != nil {
					return nil, err
				}
				res = append(res, ans)
			case models.DimensionJudge:
				ans, err := e.askJudges(ctx, id, q.Question, transcript)
				if err != nil {
					return nil, err
				}
				res = append(res, ans...)
			}
		}
		out[dim] = res
	}
	return out, nil
}

// askJudges interviews every judge concurrently and returns the answers
// indexed by judge registration order, whatever order they complete in.
func (e *GoalEvaluator) askJudges(ctx context.Context, id models.ScenarioID, question models.Prompt, transcript models.Transcript) ([]string, error) {
	judges := e.Interviewer.Registry.JudgeNames()
	if len(judges) == 0 {
		return nil, &models.ConfigurationError{Scenario: id, Field: "judge_agents", Reason: "judge questions need at least one judge actor"}
	}

	answers := make([]string, len(judges))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(judges))
	for i, name := range judges {
		g.Go(func() error {
			ans, err := e.Interviewer.ask(gctx, name, question, transcript, string(models.DimensionJudge))
			if err != nil {
				return err
			}
			answers[i] = ans
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}
