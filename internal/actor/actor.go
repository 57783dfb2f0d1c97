// Package actor implements the participants and judges of a simulated
// dialogue: a named persona backed by a reply capability.
package actor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nvandessel/sense/internal/llm"
	"github.com/nvandessel/sense/internal/models"
)

// Role distinguishes dialogue participants from evaluation-only judges.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleJudge       Role = "judge"
)

// Config describes one actor as written in a task file.
type Config struct {
	Name string `json:"name" yaml:"name"`

	// Persona is the system text: character profile, background, goals.
	Persona string `json:"system_message" yaml:"system_message"`

	Role Role             `json:"role,omitempty" yaml:"role,omitempty"`
	LLM  llm.ClientConfig `json:"llm_config" yaml:"llm_config"`
}

// Actor is one named persona. Name and persona never change after
// construction; the sampling temperature is the only mutable state.
type Actor struct {
	name      string
	persona   string
	role      Role
	model     string
	maxTokens int
	client    llm.Client

	mu          sync.Mutex
	temperature float64
}

// New creates an actor from cfg that replies through client.
func New(cfg Config, client llm.Client) *Actor {
	role := cfg.Role
	if role == "" {
		role = RoleParticipant
	}
	return &Actor{
		name:        cfg.Name,
		persona:     cfg.Persona,
		role:        role,
		model:       cfg.LLM.Model,
		maxTokens:   cfg.LLM.MaxTokens,
		client:      client,
		temperature: cfg.LLM.Temperature,
	}
}

// Name returns the actor's unique name within its scenario.
func (a *Actor) Name() string { return a.name }

// Persona returns the actor's system text.
func (a *Actor) Persona() string { return a.persona }

// Role returns whether the actor takes part in dialogue or only judges.
func (a *Actor) Role() Role { return a.role }

// Model returns the model identifier the actor replies with.
func (a *Actor) Model() string { return a.model }

// Temperature returns the current sampling temperature.
func (a *Actor) Temperature() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.temperature
}

// SetTemperature changes the sampling temperature for subsequent replies.
func (a *Actor) SetTemperature(t float64) {
	a.mu.Lock()
	a.temperature = t
	a.mu.Unlock()
}

// Reply produces the actor's next message given the history so far.
// The history is read, never modified.
func (a *Actor) Reply(ctx context.Context, history models.Transcript) (models.Reply, error) {
	resp, err := a.client.Complete(ctx, llm.Request{
		Model:       a.model,
		System:      a.persona,
		Messages:    a.perspective(history),
		Temperature: a.Temperature(),
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return models.Reply{}, fmt.Errorf("actor %s: %w", a.name, err)
	}
	return models.Reply{Text: resp.Content}, nil
}

// perspective rewrites history as this actor sees it: its own messages
// are assistant turns, other speakers' messages are user turns carrying
// the speaker's name and only their first line. Unnamed messages, such as
// interview questions, pass through unchanged.
func (a *Actor) perspective(history models.Transcript) []llm.Message {
	msgs := make([]llm.Message, 0, len(history))
	for _, m := range history {
		switch m.Name {
		case "":
			msgs = append(msgs, llm.Message{Role: string(m.Role), Content: m.Content})
		case a.name:
			msgs = append(msgs, llm.Message{Role: string(models.RoleAssistant), Content: m.Content})
		default:
			msgs = append(msgs, llm.Message{
				Role:    string(models.RoleUser),
				Content: m.Name + ": " + firstLine(m.Content),
			})
		}
	}
	return msgs
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
