// Package config provides unified configuration loading for sense.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/sense/internal/chat"
	"github.com/nvandessel/sense/internal/dataset"
	"github.com/nvandessel/sense/internal/llm"
	"github.com/nvandessel/sense/internal/models"
	"github.com/nvandessel/sense/internal/store"
	"github.com/nvandessel/sense/internal/telemetry"
)

// SenseConfig contains all sense configuration settings.
type SenseConfig struct {
	// LLM drives the dialogue actors in the homo pattern.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// GroupChat holds dialogue parameters written into every task file.
	GroupChat GroupChatConfig `json:"group_chat" yaml:"group_chat"`

	Batch BatchConfig `json:"batch" yaml:"batch"`
	Paths PathsConfig `json:"paths" yaml:"paths"`
	Store StoreConfig `json:"store" yaml:"store"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`
}

// LLMConfig configures the model behind the dialogue actors.
type LLMConfig struct {
	// Provider identifies the backend: "openai", "anthropic" or "mock".
	Provider string `json:"provider" yaml:"provider" env:"SENSE_LLM_PROVIDER"`

	Model string `json:"model" yaml:"model" env:"SENSE_LLM_MODEL"`

	// BaseURL is the API endpoint of an OpenAI-compatible server.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" env:"SENSE_LLM_BASE_URL"`

	// APIKey supports ${VAR} syntax for env vars.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"SENSE_LLM_API_KEY"`

	APIType     string        `json:"api_type,omitempty" yaml:"api_type,omitempty" env:"SENSE_LLM_API_TYPE"`
	Temperature float64       `json:"temperature" yaml:"temperature" env:"SENSE_LLM_TEMPERATURE"`
	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens" env:"SENSE_LLM_MAX_TOKENS"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"SENSE_LLM_TIMEOUT"`

	// MaxRetries, RequestsPerSecond and Burst apply to judges too.
	MaxRetries        int     `json:"max_retries" yaml:"max_retries" env:"SENSE_LLM_MAX_RETRIES"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty" env:"SENSE_LLM_RPS"`
	Burst             int     `json:"burst,omitempty" yaml:"burst,omitempty" env:"SENSE_LLM_BURST"`
}

// ClientConfig converts the section to the llm package's client settings.
func (c LLMConfig) ClientConfig() llm.ClientConfig {
	return llm.ClientConfig{
		Provider:          c.Provider,
		APIKey:            c.APIKey,
		BaseURL:           c.BaseURL,
		APIType:           c.APIType,
		Model:             c.Model,
		Temperature:       c.Temperature,
		MaxTokens:         c.MaxTokens,
		Timeout:           c.Timeout,
		MaxRetries:        c.MaxRetries,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}

// RedactedAPIKey returns the API key with most characters masked.
// Shows first 4 and last 4 characters, e.g., "sk-a...xyz9".
// Returns "" for empty keys and "(set)" for keys shorter than 12 chars.
func (c LLMConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String implements fmt.Stringer to prevent accidental API key logging.
func (c LLMConfig) String() string {
	return fmt.Sprintf("LLMConfig{Provider:%s, Model:%s, BaseURL:%s, APIKey:%s}",
		c.Provider, c.Model, c.BaseURL, c.RedactedAPIKey())
}

// GroupChatConfig holds the dialogue parameters.
type GroupChatConfig struct {
	// MaxRound below 1 means 10 rounds per character.
	MaxRound               int    `json:"max_round" yaml:"max_round" env:"SENSE_MAX_ROUND"`
	SpeakerSelectionMethod string `json:"speaker_selection_method" yaml:"speaker_selection_method" env:"SENSE_SPEAKER_SELECTION"`
	AllowRepeatSpeaker     bool   `json:"allow_repeat_speaker" yaml:"allow_repeat_speaker" env:"SENSE_ALLOW_REPEAT_SPEAKER"`

	// Seed fixes speaker selection and option alphabets. 0 seeds randomly.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty" env:"SENSE_SEED"`
}

// Chat converts the section to the per-task group chat settings.
func (c GroupChatConfig) Chat() chat.Config {
	return chat.Config{
		MaxRound:               c.MaxRound,
		SpeakerSelectionMethod: c.SpeakerSelectionMethod,
		AllowRepeatSpeaker:     c.AllowRepeatSpeaker,
	}
}

// BatchConfig configures task generation and the worker pool.
type BatchConfig struct {
	// Pattern is "homo" (one model for every participant) or "heter".
	Pattern     string           `json:"pattern" yaml:"pattern" env:"SENSE_PATTERN"`
	TaskWorkers int              `json:"task_workers" yaml:"task_workers" env:"SENSE_TASK_WORKERS"`
	OptionMark  models.MarkStyle `json:"option_mark" yaml:"option_mark" env:"SENSE_OPTION_MARK"`
}

// PathsConfig locates the inputs and outputs of a run.
type PathsConfig struct {
	// Input is the JSONL scenario dataset.
	Input string `json:"input" yaml:"input" env:"SENSE_INPUT"`

	// ConfigDir receives one YAML task file per scenario.
	ConfigDir string `json:"config_dir" yaml:"config_dir" env:"SENSE_CONFIG_DIR"`

	// OutputDir receives score records and events.jsonl.
	OutputDir string `json:"output_dir" yaml:"output_dir" env:"SENSE_OUTPUT_DIR"`

	// PromptTemplate is a JSON file with prompt_template and judge_prompt_template.
	PromptTemplate string `json:"prompt_template" yaml:"prompt_template" env:"SENSE_PROMPT_TEMPLATE"`

	// JudgeConfig is a JSON list of judge model settings.
	JudgeConfig string `json:"judge_config" yaml:"judge_config" env:"SENSE_JUDGE_CONFIG"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	// Backend is "file" (one JSON file per scenario) or "sqlite".
	Backend string `json:"backend" yaml:"backend" env:"SENSE_STORE_BACKEND"`
}

// LoggingConfig configures sense's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables event logging to <output_dir>/events.jsonl.
	// "trace" additionally includes dialogue and interview text.
	Level string `json:"level" yaml:"level" env:"SENSE_LOG_LEVEL"`
}

// Default returns a SenseConfig with sensible defaults.
func Default() *SenseConfig {
	return &SenseConfig{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "Llama-2-13b-chat-hf",
			BaseURL:     "http://0.0.0.0:8000/v1",
			APIType:     "openai",
			Temperature: 0,
			MaxTokens:   128,
			Timeout:     60 * time.Second,
			MaxRetries:  2,
			Burst:       1,
		},
		GroupChat: GroupChatConfig{
			MaxRound:               15,
			SpeakerSelectionMethod: chat.MethodRandom,
			AllowRepeatSpeaker:     false,
		},
		Batch: BatchConfig{
			Pattern:     dataset.PatternHomo,
			TaskWorkers: 4,
			OptionMark:  models.MarkUpper,
		},
		Paths: PathsConfig{
			Input:          "./data/final_data.jsonl",
			ConfigDir:      "./configs/tasks",
			OutputDir:      "./output",
			PromptTemplate: "./configs/prompt_template.json",
			JudgeConfig:    "./configs/judge_config.json",
		},
		Store: StoreConfig{
			Backend: store.BackendFile,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// GlobalConfigPath returns ~/.sense/config.yaml.
func GlobalConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".sense", "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.sense/config.yaml -> environment variables
func Load() (*SenseConfig, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file in place of
// ~/.sense/config.yaml. An explicit file must exist; the global one is
// optional.
func LoadFrom(path string) (*SenseConfig, error) {
	config := Default()

	if path == "" {
		if globalPath, err := GlobalConfigPath(); err == nil {
			if _, statErr := os.Stat(globalPath); statErr == nil {
				path = globalPath
			}
		}
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys the
// file omits keep their defaults.
func LoadFromFile(path string) (*SenseConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in API key
	config.LLM.APIKey = expandEnvVars(config.LLM.APIKey)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *SenseConfig) Validate() error {
	validProviders := map[string]bool{"": true, "openai": true, "azure": true, "anthropic": true, "mock": true}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid provider: %s (valid: openai, anthropic, mock)", c.LLM.Provider)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.LLM.Timeout)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative, got %f", c.LLM.RequestsPerSecond)
	}

	switch c.GroupChat.SpeakerSelectionMethod {
	case chat.MethodRandom, chat.MethodRoundRobin, chat.MethodAuto:
	default:
		return fmt.Errorf("invalid speaker_selection_method: %s (valid: random, round_robin, auto)", c.GroupChat.SpeakerSelectionMethod)
	}

	if c.Batch.Pattern != dataset.PatternHomo && c.Batch.Pattern != dataset.PatternHeter {
		return fmt.Errorf("invalid pattern: %s (valid: homo, heter)", c.Batch.Pattern)
	}
	if c.Batch.TaskWorkers < 1 {
		return fmt.Errorf("task_workers must be at least 1, got %d", c.Batch.TaskWorkers)
	}
	if !c.Batch.OptionMark.Valid() {
		return fmt.Errorf("invalid option_mark: %s (valid: all, upper, lower, number)", c.Batch.OptionMark)
	}

	if c.Store.Backend != store.BackendFile && c.Store.Backend != store.BackendSQLite {
		return fmt.Errorf("invalid store backend: %s (valid: file, sqlite)", c.Store.Backend)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// String renders the configuration as YAML with the API key redacted.
func (c *SenseConfig) String() string {
	redacted := *c
	redacted.LLM.APIKey = c.LLM.RedactedAPIKey()
	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Sprintf("SenseConfig{%s}", c.LLM)
	}
	return string(data)
}

// applyEnvOverrides applies SENSE_* variables, then falls back to the
// provider's conventional API key variable when no key is configured.
func applyEnvOverrides(config *SenseConfig) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if config.LLM.APIKey == "" {
		switch config.LLM.Provider {
		case "anthropic":
			config.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai", "azure", "":
			config.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	config.LLM.APIKey = expandEnvVars(config.LLM.APIKey)
	return nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
