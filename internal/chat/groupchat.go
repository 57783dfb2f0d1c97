// Package chat runs the bounded multi-party dialogue of one scenario.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nvandessel/sense/internal/actor"
	"github.com/nvandessel/sense/internal/logging"
	"github.com/nvandessel/sense/internal/models"
	"github.com/nvandessel/sense/internal/telemetry"
)

// DefaultOpening is the first message of every dialogue.
const DefaultOpening = "Hi, there!"

// Config holds the group chat parameters of a task file.
type Config struct {
	MaxRound               int    `json:"max_round" yaml:"max_round"`
	SpeakerSelectionMethod string `json:"speaker_selection_method" yaml:"speaker_selection_method"`
	AllowRepeatSpeaker     bool   `json:"allow_repeat_speaker" yaml:"allow_repeat_speaker"`
}

// GroupChat drives one dialogue. It is used once and holds no state
// across scenarios.
type GroupChat struct {
	Scenario           models.ScenarioID
	Actors             []*actor.Actor
	MaxRound           int
	Selector           SpeakerSelector
	AllowRepeatSpeaker bool

	// Opening is sent by the randomly chosen first speaker. Empty means
	// DefaultOpening.
	Opening string

	// IsTermination ends the dialogue early when it returns true for the
	// message just appended. Nil means only MaxRound ends the dialogue.
	IsTermination func(models.Message) bool

	Rand   *rand.Rand
	Logger *slog.Logger
	Events *logging.EventLog
}

// Validate checks the chat parameters before any message is produced.
func (g *GroupChat) Validate() error {
	switch {
	case len(g.Actors) == 0:
		return g.configErr("agents", "group chat has no actors")
	case g.MaxRound < 1:
		return g.configErr("max_round", fmt.Sprintf("must be at least 1, got %d", g.MaxRound))
	case g.Selector == nil:
		return g.configErr("speaker_selection_method", "no speaker selector")
	case len(g.Actors) == 1 && !g.AllowRepeatSpeaker:
		return g.configErr("allow_repeat_speaker", "a single actor must be allowed to repeat")
	case len(g.Actors) == 2 && g.AllowRepeatSpeaker:
		return g.configErr("allow_repeat_speaker", "must be false when only 2 actors are involved")
	}
	seen := make(map[string]bool, len(g.Actors))
	for _, a := range g.Actors {
		if a.Role() == actor.RoleJudge {
			return g.configErr("agents", fmt.Sprintf("judge %q cannot take part in the dialogue", a.Name()))
		}
		if seen[a.Name()] {
			return g.configErr("agents", fmt.Sprintf("duplicate actor %q", a.Name()))
		}
		seen[a.Name()] = true
	}
	return nil
}

// Run produces the transcript. The first speaker is chosen at random and
// sends the opening message; afterwards the selector picks each speaker
// until MaxRound messages exist or IsTermination fires.
func (g *GroupChat) Run(ctx context.Context) (transcript models.Transcript, err error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "chat.run")
	span.SetAttributes(
		attribute.String("scenario.id", g.Scenario.String()),
		attribute.Int("chat.max_round", g.MaxRound),
		attribute.Int("chat.actors", len(g.Actors)),
	)
	defer func() {
		span.SetAttributes(attribute.Int("chat.messages", len(transcript)))
		telemetry.End(span, err)
	}()

	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opening := g.Opening
	if opening == "" {
		opening = DefaultOpening
	}

	speaker := g.Actors[g.intN(len(g.Actors))]
	transcript = make(models.Transcript, 0, g.MaxRound)
	transcript = g.append(transcript, speaker, opening)

	for len(transcript) < g.MaxRound {
		if g.IsTermination != nil && g.IsTermination(transcript[len(transcript)-1]) {
			logger.Debug("dialogue terminated", "scenario", g.Scenario, "messages", len(transcript))
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := g.Selector.Select(ctx, Turn{
			Actors:     g.Actors,
			Eligible:   g.eligible(speaker),
			Last:       speaker,
			Transcript: transcript,
		})
		if err != nil {
			return nil, err
		}
		if next == speaker && !g.AllowRepeatSpeaker {
			return nil, fmt.Errorf("turn %d, speaker %s: %w", len(transcript), next.Name(), models.ErrRepeatSpeaker)
		}

		reply, err := next.Reply(ctx, transcript)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", len(transcript), err)
		}
		speaker = next
		transcript = g.append(transcript, speaker, reply.Text)
	}

	logger.Debug("dialogue finished", "scenario", g.Scenario, "messages", len(transcript))
	return transcript, nil
}

func (g *GroupChat) append(t models.Transcript, speaker *actor.Actor, content string) models.Transcript {
	g.Events.Turn(g.Scenario.String(), len(t), speaker.Name(), content)
	return append(t, models.Message{Name: speaker.Name(), Role: models.RoleAssistant, Content: content})
}

func (g *GroupChat) eligible(last *actor.Actor) []*actor.Actor {
	if g.AllowRepeatSpeaker {
		return g.Actors
	}
	out := make([]*actor.Actor, 0, len(g.Actors)-1)
	for _, a := range g.Actors {
		if a != last {
			out = append(out, a)
		}
	}
	return out
}

func (g *GroupChat) intN(n int) int {
	if g.Rand == nil {
		return rand.IntN(n)
	}
	return g.Rand.IntN(n)
}

func (g *GroupChat) configErr(field, reason string) error {
	return &models.ConfigurationError{Scenario: g.Scenario, Field: field, Reason: reason}
}
