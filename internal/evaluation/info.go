package evaluation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nvandessel/sense/internal/models"
	"github.com/nvandessel/sense/internal/telemetry"
)

const infoLabel = "info"

// InfoEvaluator asks each actor its own private-info questions.
type InfoEvaluator struct {
	Interviewer *Interviewer
}

// Evaluate returns each participant's raw answers in question order.
// Actors without questions are left out.
func (e *InfoEvaluator) Evaluate(ctx context.Context, scenario *models.Scenario, transcript models.Transcript) (answers map[string][]string, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "evaluation.info")
	span.SetAttributes(attribute.String("scenario.id", scenario.ID.String()))
	defer func() { telemetry.End(span, err) }()

	answers = make(map[string][]string)
	for _, name := range e.Interviewer.Registry.ParticipantNames() {
		questions := scenario.InfoQuestions[name]
		if len(questions) == 0 {
			continue
		}
		res := make([]string, 0, len(questions))
		for i, q := range questions {
			ans, err := e.Interviewer.ask(ctx, name, models.NewPrompt(q.Rendered), transcript, infoLabel)
			if err != nil {
				return nil, fmt.Errorf("info question %d of %s: %w", i, name, err)
			}
			res = append(res, ans)
		}
		answers[name] = res
	}
	return answers, nil
}
