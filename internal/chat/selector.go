package chat

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/nvandessel/sense/internal/actor"
	"github.com/nvandessel/sense/internal/llm"
	"github.com/nvandessel/sense/internal/models"
)

// Speaker selection methods.
const (
	MethodRandom     = "random"
	MethodRoundRobin = "round_robin"
	MethodAuto       = "auto"
)

// Turn is what a selector sees when choosing the next speaker.
type Turn struct {
	// Actors are all dialogue actors in registration order.
	Actors []*actor.Actor

	// Eligible are the actors allowed to speak next. When repeats are
	// forbidden the previous speaker is left out.
	Eligible []*actor.Actor

	// Last is the previous speaker.
	Last *actor.Actor

	Transcript models.Transcript
}

// SpeakerSelector picks the next speaker of a group chat.
type SpeakerSelector interface {
	Select(ctx context.Context, turn Turn) (*actor.Actor, error)
}

// NewSelector builds the selector for method. rng drives the random
// selector; client backs the auto selector and may be nil otherwise.
func NewSelector(method string, rng *rand.Rand, client llm.Client) (SpeakerSelector, error) {
	switch strings.ToLower(method) {
	case MethodRandom, "":
		return &RandomSelector{rng: rng}, nil
	case MethodRoundRobin:
		return RoundRobinSelector{}, nil
	case MethodAuto:
		if client == nil {
			return nil, &models.ConfigurationError{Field: "speaker_selection_method", Reason: "auto selection needs a selector model"}
		}
		return &AutoSelector{Client: client}, nil
	default:
		return nil, &models.ConfigurationError{
			Field:  "speaker_selection_method",
			Reason: fmt.Sprintf("unsupported method %q (valid: random, round_robin, auto)", method),
		}
	}
}

// RandomSelector picks uniformly among the eligible actors.
type RandomSelector struct {
	rng *rand.Rand
}

// Select implements SpeakerSelector.
func (s *RandomSelector) Select(_ context.Context, turn Turn) (*actor.Actor, error) {
	if len(turn.Eligible) == 0 {
		return nil, fmt.Errorf("no eligible speaker")
	}
	if s.rng == nil {
		return turn.Eligible[rand.IntN(len(turn.Eligible))], nil
	}
	return turn.Eligible[s.rng.IntN(len(turn.Eligible))], nil
}

// RoundRobinSelector hands the turn to the actor registered after the
// previous speaker.
type RoundRobinSelector struct{}

// Select implements SpeakerSelector.
func (RoundRobinSelector) Select(_ context.Context, turn Turn) (*actor.Actor, error) {
	return nextAfter(turn), nil
}

func nextAfter(turn Turn) *actor.Actor {
	i := slices.Index(turn.Actors, turn.Last)
	return turn.Actors[(i+1)%len(turn.Actors)]
}

// AutoSelector asks a model to name the next speaker. Answers that name
// no eligible actor fall back to round robin.
type AutoSelector struct {
	Client llm.Client
	Model  string
}

// Select implements SpeakerSelector.
func (s *AutoSelector) Select(ctx context.Context, turn Turn) (*actor.Actor, error) {
	resp, err := s.Client.Complete(ctx, llm.Request{
		Model:    s.Model,
		System:   selectorPrompt(turn),
		Messages: selectorHistory(turn.Transcript),
	})
	if err != nil {
		return nil, fmt.Errorf("selecting speaker: %w", err)
	}
	if a := mentioned(resp.Content, turn.Eligible); a != nil {
		return a, nil
	}
	return nextAfter(turn), nil
}

func selectorPrompt(turn Turn) string {
	var b strings.Builder
	b.WriteString("You are in a role play game. The following roles are available:\n")
	names := make([]string, len(turn.Eligible))
	for i, a := range turn.Eligible {
		names[i] = a.Name()
		fmt.Fprintf(&b, "%s: %s\n", a.Name(), firstLine(a.Persona()))
	}
	fmt.Fprintf(&b, "Read the conversation. Then select the next role from %s to play. Only return the role.", strings.Join(names, ", "))
	return b.String()
}

func selectorHistory(t models.Transcript) []llm.Message {
	msgs := make([]llm.Message, len(t))
	for i, m := range t {
		msgs[i] = llm.Message{Role: string(models.RoleUser), Content: m.Name + ": " + m.Content}
	}
	return msgs
}

// mentioned returns the single actor whose name appears in text. An exact
// match wins; otherwise exactly one name must occur.
func mentioned(text string, actors []*actor.Actor) *actor.Actor {
	text = strings.TrimSpace(text)
	var found *actor.Actor
	for _, a := range actors {
		if text == a.Name() {
			return a
		}
		if strings.Contains(text, a.Name()) {
			if found != nil {
				return nil
			}
			found = a
		}
	}
	return found
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
