// Package evaluation interviews actors about a finished dialogue: goal
// completion from the self, others and judge perspectives, and
// multiple-choice questions about other actors' private information.
package evaluation

import (
	"context"
	"log/slog"

	"github.com/nvandessel/sense/internal/actor"
	"github.com/nvandessel/sense/internal/logging"
	"github.com/nvandessel/sense/internal/models"
)

// Interviewer asks one actor one question against a frozen transcript.
type Interviewer struct {
	Registry *actor.Registry
	Scenario models.ScenarioID
	Logger   *slog.Logger
	Events   *logging.EventLog
}

// Interview sends question to the named actor after the transcript and
// returns the answer text. The transcript is never modified and the call
// is never retried here.
func (iv *Interviewer) Interview(ctx context.Context, name string, question models.Prompt, transcript models.Transcript) (string, error) {
	return iv.ask(ctx, name, question, transcript, "")
}

func (iv *Interviewer) ask(ctx context.Context, name string, question models.Prompt, transcript models.Transcript, label string) (string, error) {
	a, err := iv.Registry.Lookup(name)
	if err != nil {
		return "", err
	}

	text := question.Text()
	history := transcript.With(models.Message{Role: models.RoleUser, Content: text})
	reply, err := a.Reply(ctx, history)
	if err != nil {
		return "", err
	}

	iv.Events.Interview(iv.Scenario.String(), name, label, text, reply.Text)
	if iv.Logger != nil {
		iv.Logger.Log(ctx, logging.LevelTrace, "interview", "scenario", iv.Scenario, "actor", name, "dimension", label, "answer", reply.Text)
	}
	return reply.Text, nil
}
