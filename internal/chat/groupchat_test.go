package chat

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/nvandessel/sense/internal/actor"
	"github.com/nvandessel/sense/internal/llm"
	"github.com/nvandessel/sense/internal/models"
)

func newActors(t *testing.T, names ...string) []*actor.Actor {
	t.Helper()
	out := make([]*actor.Actor, len(names))
	for i, n := range names {
		reply := "I am " + n
		out[i] = actor.New(actor.Config{Name: n, Persona: n + " persona"}, llm.NewMockClient().WithReplies(reply))
	}
	return out
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestGroupChat_Run(t *testing.T) {
	tests := []struct {
		name        string
		actors      []string
		method      string
		maxRound    int
		allowRepeat bool
	}{
		{"two actors random", []string{"Alice", "Bob"}, MethodRandom, 6, false},
		{"three actors random", []string{"Alice", "Bob", "Carol"}, MethodRandom, 15, false},
		{"three actors repeat allowed", []string{"Alice", "Bob", "Carol"}, MethodRandom, 9, true},
		{"round robin", []string{"Alice", "Bob", "Carol"}, MethodRoundRobin, 7, false},
		{"single round", []string{"Alice", "Bob"}, MethodRandom, 1, false},
		{"single actor", []string{"Alice"}, MethodRandom, 3, true},
	}

	for _, tt := range tests {
		for seed := uint64(1); seed <= 5; seed++ {
			t.Run(fmt.Sprintf("%s/seed%d", tt.name, seed), func(t *testing.T) {
				rng := seeded(seed)
				sel, err := NewSelector(tt.method, rng, nil)
				if err != nil {
					t.Fatal(err)
				}
				g := &GroupChat{
					Scenario:           "1",
					Actors:             newActors(t, tt.actors...),
					MaxRound:           tt.maxRound,
					Selector:           sel,
					AllowRepeatSpeaker: tt.allowRepeat,
					Rand:               rng,
				}

				transcript, err := g.Run(context.Background())
				if err != nil {
					t.Fatalf("Run() error = %v", err)
				}
				if len(transcript) != tt.maxRound {
					t.Errorf("len = %d, want %d", len(transcript), tt.maxRound)
				}
				if transcript[0].Content != DefaultOpening {
					t.Errorf("opening = %q", transcript[0].Content)
				}
				for i, m := range transcript {
					if m.Role != models.RoleAssistant || m.Name == "" {
						t.Errorf("message %d = %+v", i, m)
					}
					if i > 0 && m.Content != "I am "+m.Name {
						t.Errorf("message %d content = %q from %s", i, m.Content, m.Name)
					}
					if !tt.allowRepeat && i > 0 && transcript[i-1].Name == m.Name {
						t.Errorf("consecutive messages from %s at %d", m.Name, i)
					}
				}
			})
		}
	}
}

func TestGroupChat_RoundRobinOrder(t *testing.T) {
	actors := newActors(t, "Alice", "Bob", "Carol")
	g := &GroupChat{Actors: actors, MaxRound: 7, Selector: RoundRobinSelector{}, Rand: seeded(3)}

	transcript, err := g.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	speakers := transcript.Speakers()
	for i := 1; i < len(speakers); i++ {
		prev := indexOf(actors, speakers[i-1])
		if got, want := speakers[i], actors[(prev+1)%3].Name(); got != want {
			t.Errorf("speaker %d = %s, want %s", i, got, want)
		}
	}
}

func indexOf(actors []*actor.Actor, name string) int {
	for i, a := range actors {
		if a.Name() == name {
			return i
		}
	}
	return -1
}

func TestGroupChat_HistoryGrowsPerTurn(t *testing.T) {
	client := llm.NewMockClient().WithReplies("ok")
	alice := actor.New(actor.Config{Name: "Alice"}, client)
	bob := actor.New(actor.Config{Name: "Bob"}, client)

	g := &GroupChat{Actors: []*actor.Actor{alice, bob}, MaxRound: 4, Selector: RoundRobinSelector{}, Rand: seeded(1)}
	if _, err := g.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if client.CallCount() != 3 {
		t.Fatalf("calls = %d, want 3", client.CallCount())
	}
	for i, call := range client.Calls {
		if len(call.Messages) != i+1 {
			t.Errorf("call %d saw %d messages, want %d", i, len(call.Messages), i+1)
		}
	}
}

func TestGroupChat_Termination(t *testing.T) {
	actors := []*actor.Actor{
		actor.New(actor.Config{Name: "Alice"}, llm.NewMockClient().WithReplies("TERMINATE")),
		actor.New(actor.Config{Name: "Bob"}, llm.NewMockClient().WithReplies("TERMINATE")),
	}
	g := &GroupChat{
		Actors:        actors,
		MaxRound:      10,
		Selector:      RoundRobinSelector{},
		IsTermination: func(m models.Message) bool { return strings.Contains(m.Content, "TERMINATE") },
		Rand:          seeded(1),
	}

	transcript, err := g.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(transcript) != 2 {
		t.Errorf("len = %d, want 2", len(transcript))
	}
}

type stuckSelector struct{}

func (stuckSelector) Select(_ context.Context, turn Turn) (*actor.Actor, error) {
	return turn.Last, nil
}

func TestGroupChat_RepeatSpeakerRejected(t *testing.T) {
	g := &GroupChat{Actors: newActors(t, "Alice", "Bob"), MaxRound: 5, Selector: stuckSelector{}, Rand: seeded(1)}

	_, err := g.Run(context.Background())
	if !errors.Is(err, models.ErrRepeatSpeaker) {
		t.Errorf("Run() error = %v, want ErrRepeatSpeaker", err)
	}
}

func TestGroupChat_ReplyError(t *testing.T) {
	boom := errors.New("backend down")
	actors := []*actor.Actor{
		actor.New(actor.Config{Name: "Alice"}, llm.NewMockClient().WithError(boom)),
		actor.New(actor.Config{Name: "Bob"}, llm.NewMockClient().WithError(boom)),
	}
	g := &GroupChat{Actors: actors, MaxRound: 3, Selector: RoundRobinSelector{}, Rand: seeded(1)}

	if _, err := g.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}

func TestGroupChat_Validate(t *testing.T) {
	judge := actor.New(actor.Config{Name: "judge_x", Role: actor.RoleJudge}, llm.NewMockClient())

	tests := []struct {
		name        string
		actors      []*actor.Actor
		maxRound    int
		allowRepeat bool
		selector    SpeakerSelector
	}{
		{"no actors", nil, 5, false, RoundRobinSelector{}},
		{"zero rounds", newActors(t, "A", "B"), 0, false, RoundRobinSelector{}},
		{"no selector", newActors(t, "A", "B"), 5, false, nil},
		{"single actor without repeat", newActors(t, "A"), 5, false, RoundRobinSelector{}},
		{"two actors with repeat", newActors(t, "A", "B"), 5, true, RoundRobinSelector{}},
		{"judge in dialogue", append(newActors(t, "A", "B"), judge), 5, false, RoundRobinSelector{}},
		{"duplicate names", newActors(t, "A", "A", "B"), 5, false, RoundRobinSelector{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &GroupChat{Actors: tt.actors, MaxRound: tt.maxRound, Selector: tt.selector, AllowRepeatSpeaker: tt.allowRepeat}
			if err := g.Validate(); !models.IsConfigurationError(err) {
				t.Errorf("Validate() = %v, want ConfigurationError", err)
			}
			if _, err := g.Run(context.Background()); !models.IsConfigurationError(err) {
				t.Errorf("Run() = %v, want ConfigurationError", err)
			}
		})
	}
}

func TestGroupChat_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := &GroupChat{Actors: newActors(t, "A", "B"), MaxRound: 5, Selector: RoundRobinSelector{}}
	if _, err := g.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
