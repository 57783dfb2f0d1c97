// Package dataset turns a JSONL scenario dataset into per-scenario task
// files and loads those task files back for simulation.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvandessel/sense/internal/models"
)

// Role labels used by heterogeneous sender/receiver runs.
const (
	RoleSender   = "sender"
	RoleReceiver = "receiver"
)

// Character is one participant of a dataset sample.
type Character struct {
	Name          string                `json:"name"`
	Profile       string                `json:"profile"`
	Goals         []models.Goal         `json:"goals"`
	PrivateInfo   string                `json:"private_info"`
	InfoQuestions []models.InfoQuestion `json:"info_reason_questions"`

	// Per-character model settings, used by the heter pattern.
	Model   string `json:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
	APIType string `json:"api_type,omitempty"`
}

// Sample is one line of the dataset.
type Sample struct {
	ID models.ScenarioID `json:"sample_idx"`

	// TemplateID groups samples generated from the same scenario template.
	// Like sample ids it may be a number or a string.
	TemplateID models.ScenarioID `json:"template_idx"`

	Background  string      `json:"background"`
	Description string      `json:"description"`
	Characters  []Character `json:"characters"`

	// Roles maps character names to RoleSender or RoleReceiver.
	Roles map[string]string `json:"roles,omitempty"`
}

// maxLineSize bounds one dataset line. Samples embed long backgrounds.
const maxLineSize = 16 * 1024 * 1024

// ReadJSONL reads one Sample per non-blank line of path.
func ReadJSONL(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	var samples []Sample
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var s Sample
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("%s:%d: failed to parse sample: %w", path, lineNo, err)
		}
		if s.ID == "" {
			return nil, fmt.Errorf("%s:%d: sample has no sample_idx", path, lineNo)
		}
		samples = append(samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return samples, nil
}

// WriteJSONL writes samples to path, one per line.
func WriteJSONL(path string, samples []Sample) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, s := range samples {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode sample %s: %w", s.ID, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}
