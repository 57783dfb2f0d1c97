package models

import "strings"

// Role identifies who authored a message from the model's point of view.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a dialogue or interview history.
type Message struct {
	// Name is the speaker. Empty for synthetic messages such as interview questions.
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Transcript is the ordered message log of one simulated dialogue.
// Once the dialogue finishes it is treated as read-only.
type Transcript []Message

// Clone returns a copy that shares no backing array with t.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// With returns a new transcript holding t followed by msgs. t is left untouched.
func (t Transcript) With(msgs ...Message) Transcript {
	out := make(Transcript, 0, len(t)+len(msgs))
	out = append(out, t...)
	return append(out, msgs...)
}

// Speakers returns the speaker name of every message in order.
func (t Transcript) Speakers() []string {
	names := make([]string, len(t))
	for i, m := range t {
		names[i] = m.Name
	}
	return names
}

// Reply is the normalized output of an actor's reply capability.
type Reply struct {
	Text string `json:"text"`
}

// Prompt is the text of an evaluation question.
//
// Upstream data sometimes wraps a question in a single-element list, so a
// Prompt decodes from either a scalar string or a list of strings.
type Prompt []string

// NewPrompt builds a single-line prompt.
func NewPrompt(s string) Prompt { return Prompt{s} }

// Text unwraps the prompt to the question text sent to an actor.
// A single-element list yields that element; longer lists are joined by newlines.
func (p Prompt) Text() string {
	switch len(p) {
	case 0:
		return ""
	case 1:
		return p[0]
	default:
		return strings.Join(p, "\n")
	}
}

// Empty reports whether the prompt carries no text.
func (p Prompt) Empty() bool {
	return strings.TrimSpace(p.Text()) == ""
}
