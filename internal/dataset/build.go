package dataset

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/nvandessel/sense/internal/chat"
	"github.com/nvandessel/sense/internal/llm"
	"github.com/nvandessel/sense/internal/models"
)

// Patterns of model assignment.
const (
	PatternHomo  = "homo"  // every participant uses BuildOptions.LLM
	PatternHeter = "heter" // participants use their own model settings
)

// RoundsPerCharacter sets max_round when it is configured below 1.
const RoundsPerCharacter = 10

// PromptTemplates holds the persona templates of participants and judges.
type PromptTemplates struct {
	Participant string `json:"prompt_template"`
	Judge       string `json:"judge_prompt_template"`
}

// LoadPromptTemplates reads the prompt template JSON file.
func LoadPromptTemplates(path string) (*PromptTemplates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt templates: %w", err)
	}
	var pt PromptTemplates
	if err := json.Unmarshal(data, &pt); err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	if pt.Participant == "" {
		return nil, fmt.Errorf("prompt templates %s: missing prompt_template", path)
	}
	return &pt, nil
}

// JudgeConfig is one entry of the judge config file.
type JudgeConfig struct {
	Model       string  `json:"judge_model"`
	BaseURL     string  `json:"judge_base_url"`
	APIKey      string  `json:"judge_api_key"`
	APIType     string  `json:"judge_api_type"`
	Temperature float64 `json:"judge_temperature"`
	MaxTokens   int     `json:"judge_max_tokens"`

	// Provider defaults to the participants' provider.
	Provider string `json:"judge_provider,omitempty"`
}

// Name returns the judge actor name, "judge_<model>".
func (j JudgeConfig) Name() string { return "judge_" + j.Model }

// LoadJudgeConfigs reads the judge config JSON list.
func LoadJudgeConfigs(path string) ([]JudgeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read judge config: %w", err)
	}
	var judges []JudgeConfig
	if err := json.Unmarshal(data, &judges); err != nil {
		return nil, fmt.Errorf("failed to parse judge config: %w", err)
	}
	for i, j := range judges {
		if j.Model == "" {
			return nil, fmt.Errorf("judge config %s: entry %d has no judge_model", path, i)
		}
	}
	return judges, nil
}

// BuildOptions controls task generation.
type BuildOptions struct {
	Pattern string
	Chat    chat.Config

	// LLM is the participant model for the homo pattern. In the heter
	// pattern only its provider, sampling and retry settings are used.
	LLM llm.ClientConfig

	Templates  PromptTemplates
	Judges     []JudgeConfig
	OptionMark models.MarkStyle

	// Rand picks option alphabets for MarkAll.
	Rand *rand.Rand
}

// BuildTasks creates one task per sample.
func BuildTasks(samples []Sample, opts BuildOptions) ([]*Task, error) {
	if opts.Pattern != PatternHomo && opts.Pattern != PatternHeter {
		return nil, fmt.Errorf("unsupported pattern: %s", opts.Pattern)
	}
	if !opts.OptionMark.Valid() {
		return nil, &models.ConfigurationError{Field: "option_mark", Reason: fmt.Sprintf("unsupported marker style %q", opts.OptionMark)}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	judges := make([]JudgeSpec, len(opts.Judges))
	for i, j := range opts.Judges {
		cfg := opts.LLM
		cfg.Model = j.Model
		cfg.BaseURL = j.BaseURL
		cfg.APIKey = j.APIKey
		cfg.APIType = j.APIType
		cfg.Temperature = j.Temperature
		cfg.MaxTokens = j.MaxTokens
		if j.Provider != "" {
			cfg.Provider = j.Provider
		}
		judges[i] = JudgeSpec{Name: j.Name(), PromptTemplate: opts.Templates.Judge, LLM: cfg}
	}

	tasks := make([]*Task, 0, len(samples))
	for _, s := range samples {
		t, err := buildTask(s, opts, judges)
		if err != nil {
			return nil, err
		}
		if err := t.RenderQuestions(rng); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func buildTask(s Sample, opts BuildOptions, judges []JudgeSpec) (*Task, error) {
	groupChat := opts.Chat
	if groupChat.MaxRound < 1 {
		groupChat.MaxRound = RoundsPerCharacter * len(s.Characters)
	}

	scene := models.Scenario{
		ID:            s.ID,
		TemplateID:    s.TemplateID.String(),
		Background:    s.Background,
		Description:   s.Description,
		Goals:         make(map[string][]models.Goal, len(s.Characters)),
		InfoQuestions: make(map[string][]models.InfoQuestion, len(s.Characters)),
		MarkStyle:     opts.OptionMark,
	}

	agents := make([]AgentSpec, len(s.Characters))
	for i, c := range s.Characters {
		scene.Goals[c.Name] = c.Goals
		questions := make([]models.InfoQuestion, len(c.InfoQuestions))
		copy(questions, c.InfoQuestions)
		scene.InfoQuestions[c.Name] = questions

		cfg := opts.LLM
		if opts.Pattern == PatternHeter {
			if c.Model == "" {
				return nil, &models.ConfigurationError{
					Scenario: s.ID,
					Field:    "characters",
					Reason:   fmt.Sprintf("character %q has no model for the heter pattern", c.Name),
				}
			}
			cfg.Model = c.Model
			cfg.BaseURL = c.BaseURL
			cfg.APIKey = c.APIKey
			cfg.APIType = c.APIType
		}

		goals := make([]string, len(c.Goals))
		for k, g := range c.Goals {
			goals[k] = g.Goal
		}
		agents[i] = AgentSpec{
			Name:           c.Name,
			Profile:        c.Profile,
			SocialGoal:     goals,
			PrivateInfo:    c.PrivateInfo,
			PromptTemplate: opts.Templates.Participant,
			LLM:            cfg,
		}
	}

	return &Task{
		Scene:       scene,
		GroupChat:   groupChat,
		Agents:      agents,
		JudgeAgents: judges,
	}, nil
}

// RoleModel is the model assigned to every character of one role.
type RoleModel struct {
	Model   string
	BaseURL string
	APIKey  string
	APIType string
}

// AssignRoleModels keeps the samples whose roles are exactly a sender and
// a receiver, and gives senders and receivers their model settings.
// The input samples are not modified.
func AssignRoleModels(samples []Sample, sender, receiver RoleModel) []Sample {
	var out []Sample
	for _, s := range samples {
		if !senderReceiver(s.Roles) {
			continue
		}
		chars := make([]Character, len(s.Characters))
		copy(chars, s.Characters)
		for i := range chars {
			m := receiver
			if s.Roles[chars[i].Name] == RoleSender {
				m = sender
			}
			chars[i].Model = m.Model
			chars[i].BaseURL = m.BaseURL
			chars[i].APIKey = m.APIKey
			chars[i].APIType = m.APIType
		}
		s.Characters = chars
		out = append(out, s)
	}
	return out
}

func senderReceiver(roles map[string]string) bool {
	seen := make(map[string]bool, 2)
	for _, r := range roles {
		seen[r] = true
	}
	return len(seen) == 2 && seen[RoleSender] && seen[RoleReceiver]
}
