package models

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func validScenario() *Scenario {
	return &Scenario{
		ID:          "7",
		Background:  "A dinner party.",
		Description: "Two friends meet.",
		MarkStyle:   MarkUpper,
		Goals: map[string][]Goal{
			"Alice": {{
				Goal: "Borrow the car",
				EvalQuestions: map[Dimension][]EvalQuestion{
					DimensionSelf:   {{Question: NewPrompt("Did you borrow the car?")}},
					DimensionOthers: {{Question: NewPrompt("Did Alice borrow the car?"), Target: "Bob"}},
					DimensionJudge:  {{Question: NewPrompt("Did Alice borrow the car?")}},
				},
			}},
		},
		InfoQuestions: map[string][]InfoQuestion{
			"Bob": {{
				Question:    "What does Alice want?",
				Options:     []string{"A car", "A letter"},
				AnswerLabel: 0,
				Rendered:    "What does Alice want? Options: (A) A car; (B) A letter.",
			}},
		},
	}
}

func TestScenario_Validate(t *testing.T) {
	actors := []string{"Alice", "Bob"}

	tests := []struct {
		name    string
		mutate  func(s *Scenario)
		wantErr bool
	}{
		{"valid", func(s *Scenario) {}, false},
		{"missing id", func(s *Scenario) { s.ID = "" }, true},
		{"bad marker style", func(s *Scenario) { s.MarkStyle = "greek" }, true},
		{"unsupported dimension", func(s *Scenario) {
			s.Goals["Alice"][0].EvalQuestions["audience"] = []EvalQuestion{{Question: NewPrompt("?")}}
		}, true},
		{"others without target", func(s *Scenario) {
			s.Goals["Alice"][0].EvalQuestions[DimensionOthers][0].Target = ""
		}, true},
		{"others with unknown target", func(s *Scenario) {
			s.Goals["Alice"][0].EvalQuestions[DimensionOthers][0].Target = "Carol"
		}, true},
		{"goals for unknown actor", func(s *Scenario) {
			s.Goals["Carol"] = s.Goals["Alice"]
		}, true},
		{"answer label out of range", func(s *Scenario) {
			s.InfoQuestions["Bob"][0].AnswerLabel = 2
		}, true},
		{"unrendered info question", func(s *Scenario) {
			s.InfoQuestions["Bob"][0].Rendered = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validScenario()
			tt.mutate(s)
			err := s.Validate(actors)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var ce *ConfigurationError
				if !errors.As(err, &ce) {
					t.Errorf("Validate() error type = %T, want *ConfigurationError", err)
				}
			}
		})
	}
}

func TestScenario_HasInfoQuestions(t *testing.T) {
	s := validScenario()
	if !s.HasInfoQuestions() {
		t.Error("HasInfoQuestions() = false, want true")
	}
	s.InfoQuestions = map[string][]InfoQuestion{"Bob": {}}
	if s.HasInfoQuestions() {
		t.Error("HasInfoQuestions() = true for empty lists")
	}
}

func TestPrompt_DecodeScalarAndList(t *testing.T) {
	var q struct {
		A Prompt `json:"a" yaml:"a"`
		B Prompt `json:"b" yaml:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"plain","b":["wrapped"]}`), &q); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if q.A.Text() != "plain" || q.B.Text() != "wrapped" {
		t.Errorf("json decode got %q / %q", q.A.Text(), q.B.Text())
	}

	if err := yaml.Unmarshal([]byte("a: plain\nb:\n  - wrapped\n"), &q); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if q.A.Text() != "plain" || q.B.Text() != "wrapped" {
		t.Errorf("yaml decode got %q / %q", q.A.Text(), q.B.Text())
	}

	out, err := json.Marshal(NewPrompt("single"))
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if string(out) != `"single"` {
		t.Errorf("MarshalJSON = %s, want scalar", out)
	}
}

func TestPrompt_TextJoinsLongLists(t *testing.T) {
	p := Prompt{"first", "second"}
	if got := p.Text(); got != "first\nsecond" {
		t.Errorf("Text() = %q", got)
	}
	if !(Prompt{}).Empty() {
		t.Error("empty prompt should report Empty()")
	}
}

func TestScenarioID_DecodesNumbers(t *testing.T) {
	var v struct {
		ID ScenarioID `json:"id"`
	}
	if err := json.Unmarshal([]byte(`{"id": 42}`), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.ID != "42" {
		t.Errorf("ID = %q, want 42", v.ID)
	}
	if err := json.Unmarshal([]byte(`{"id": "s-1"}`), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.ID != "s-1" {
		t.Errorf("ID = %q, want s-1", v.ID)
	}
}

func TestTranscript_WithDoesNotAlias(t *testing.T) {
	base := make(Transcript, 1, 4)
	base[0] = Message{Name: "Alice", Role: RoleAssistant, Content: "Hi"}

	a := base.With(Message{Role: RoleUser, Content: "q1"})
	b := base.With(Message{Role: RoleUser, Content: "q2"})

	if len(base) != 1 {
		t.Fatalf("base mutated: len = %d", len(base))
	}
	if a[1].Content != "q1" || b[1].Content != "q2" {
		t.Errorf("With() aliased backing arrays: a=%q b=%q", a[1].Content, b[1].Content)
	}
}
