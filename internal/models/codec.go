package models

import (
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnmarshalJSON accepts "question" or ["question", ...].
func (p *Prompt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Prompt{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("prompt must be a string or a list of strings: %w", err)
	}
	*p = Prompt(list)
	return nil
}

// MarshalJSON writes single-element prompts as a plain string.
func (p Prompt) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(p[0])
	}
	return json.Marshal([]string(p))
}

// UnmarshalYAML accepts a scalar or a sequence node.
func (p *Prompt) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = Prompt{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("decoding prompt list: %w", err)
		}
		*p = Prompt(list)
		return nil
	default:
		return fmt.Errorf("line %d: prompt must be a string or a list of strings", node.Line)
	}
}

// MarshalYAML writes single-element prompts as a plain scalar.
func (p Prompt) MarshalYAML() (any, error) {
	if len(p) == 1 {
		return p[0], nil
	}
	return []string(p), nil
}

// ScenarioID identifies a scenario. Datasets store it either as a number or
// as a string, so it decodes from both.
type ScenarioID string

// UnmarshalJSON accepts 12 or "12".
func (id *ScenarioID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ScenarioID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("scenario id must be a string or a number: %w", err)
	}
	*id = ScenarioID(n.String())
	return nil
}

// FromInt converts a numeric identifier.
func FromInt(n int) ScenarioID {
	return ScenarioID(strconv.Itoa(n))
}

func (id ScenarioID) String() string { return string(id) }

// CompareScenarioIDs orders ids numerically when both are integers and
// lexically otherwise. Numbers sort before non-numbers.
func CompareScenarioIDs(a, b ScenarioID) int {
	na, errA := strconv.Atoi(string(a))
	nb, errB := strconv.Atoi(string(b))
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(na, nb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(string(a), string(b))
	}
}
