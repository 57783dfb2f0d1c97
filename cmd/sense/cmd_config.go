package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/sense/internal/config"
	"github.com/nvandessel/sense/internal/models"
)

// configKeys lists the keys accepted by config get and set, in display order.
var configKeys = []string{
	"llm.provider", "llm.model", "llm.base_url", "llm.api_key", "llm.api_type",
	"llm.temperature", "llm.max_tokens", "llm.timeout", "llm.max_retries",
	"llm.requests_per_second", "llm.burst",
	"group_chat.max_round", "group_chat.speaker_selection_method",
	"group_chat.allow_repeat_speaker", "group_chat.seed",
	"batch.pattern", "batch.task_workers", "batch.option_mark",
	"paths.input", "paths.config_dir", "paths.output_dir",
	"paths.prompt_template", "paths.judge_config",
	"store.backend", "logging.level",
	"telemetry.enabled", "telemetry.endpoint",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage sense configuration",
		Long: `View and modify sense configuration settings.

Configuration is stored in ~/.sense/config.yaml (or the file named by
--config). SENSE_* environment variables override it at load time.

Examples:
  sense config list                            # Show all settings
  sense config get llm.model                   # Get a specific setting
  sense config set llm.provider anthropic      # Set a setting
  sense config set llm.api_key '${OPENAI_API_KEY}'`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)
	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				redacted := *cfg
				redacted.LLM.APIKey = cfg.LLM.RedactedAPIKey()
				return writeJSON(cmd.OutOrStdout(), redacted)
			}

			w := cmd.OutOrStdout()
			for _, key := range configKeys {
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(w, "  %-38s %v\n", key+":", valueOrDefault(fmt.Sprint(value), "(not set)"))
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			key := args[0]
			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"key": key, "value": value})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			// Only the file's own settings are written back: no env
			// overrides and no expanded ${VAR} secrets.
			cfg := config.Default()
			if data, readErr := os.ReadFile(path); readErr == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return fmt.Errorf("failed to parse %s: %w", path, err)
				}
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := saveConfig(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			shown := value
			if key == "llm.api_key" {
				shown = cfg.LLM.RedactedAPIKey()
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"status": "updated", "key": key, "value": shown})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, shown)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.SenseConfig, key string) (any, bool) {
	switch key {
	case "llm.provider":
		return cfg.LLM.Provider, true
	case "llm.model":
		return cfg.LLM.Model, true
	case "llm.base_url":
		return cfg.LLM.BaseURL, true
	case "llm.api_key":
		return cfg.LLM.RedactedAPIKey(), true
	case "llm.api_type":
		return cfg.LLM.APIType, true
	case "llm.temperature":
		return cfg.LLM.Temperature, true
	case "llm.max_tokens":
		return cfg.LLM.MaxTokens, true
	case "llm.timeout":
		return cfg.LLM.Timeout.String(), true
	case "llm.max_retries":
		return cfg.LLM.MaxRetries, true
	case "llm.requests_per_second":
		return cfg.LLM.RequestsPerSecond, true
	case "llm.burst":
		return cfg.LLM.Burst, true
	case "group_chat.max_round":
		return cfg.GroupChat.MaxRound, true
	case "group_chat.speaker_selection_method":
		return cfg.GroupChat.SpeakerSelectionMethod, true
	case "group_chat.allow_repeat_speaker":
		return cfg.GroupChat.AllowRepeatSpeaker, true
	case "group_chat.seed":
		return cfg.GroupChat.Seed, true
	case "batch.pattern":
		return cfg.Batch.Pattern, true
	case "batch.task_workers":
		return cfg.Batch.TaskWorkers, true
	case "batch.option_mark":
		return string(cfg.Batch.OptionMark), true
	case "paths.input":
		return cfg.Paths.Input, true
	case "paths.config_dir":
		return cfg.Paths.ConfigDir, true
	case "paths.output_dir":
		return cfg.Paths.OutputDir, true
	case "paths.prompt_template":
		return cfg.Paths.PromptTemplate, true
	case "paths.judge_config":
		return cfg.Paths.JudgeConfig, true
	case "store.backend":
		return cfg.Store.Backend, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "telemetry.enabled":
		return cfg.Telemetry.Enabled, true
	case "telemetry.endpoint":
		return cfg.Telemetry.Endpoint, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.SenseConfig, key, value string) error {
	var err error
	switch key {
	case "llm.provider":
		cfg.LLM.Provider = value
	case "llm.model":
		cfg.LLM.Model = value
	case "llm.base_url":
		cfg.LLM.BaseURL = value
	case "llm.api_key":
		cfg.LLM.APIKey = value
	case "llm.api_type":
		cfg.LLM.APIType = value
	case "llm.temperature":
		cfg.LLM.Temperature, err = strconv.ParseFloat(value, 64)
	case "llm.max_tokens":
		cfg.LLM.MaxTokens, err = strconv.Atoi(value)
	case "llm.timeout":
		var d time.Duration
		if d, err = time.ParseDuration(value); err == nil {
			cfg.LLM.Timeout = d
		}
	case "llm.max_retries":
		cfg.LLM.MaxRetries, err = strconv.Atoi(value)
	case "llm.requests_per_second":
		cfg.LLM.RequestsPerSecond, err = strconv.ParseFloat(value, 64)
	case "llm.burst":
		cfg.LLM.Burst, err = strconv.Atoi(value)
	case "group_chat.max_round":
		cfg.GroupChat.MaxRound, err = strconv.Atoi(value)
	case "group_chat.speaker_selection_method":
		cfg.GroupChat.SpeakerSelectionMethod = value
	case "group_chat.allow_repeat_speaker":
		cfg.GroupChat.AllowRepeatSpeaker, err = strconv.ParseBool(value)
	case "group_chat.seed":
		cfg.GroupChat.Seed, err = strconv.ParseUint(value, 10, 64)
	case "batch.pattern":
		cfg.Batch.Pattern = value
	case "batch.task_workers":
		cfg.Batch.TaskWorkers, err = strconv.Atoi(value)
	case "batch.option_mark":
		cfg.Batch.OptionMark = models.MarkStyle(value)
	case "paths.input":
		cfg.Paths.Input = value
	case "paths.config_dir":
		cfg.Paths.ConfigDir = value
	case "paths.output_dir":
		cfg.Paths.OutputDir = value
	case "paths.prompt_template":
		cfg.Paths.PromptTemplate = value
	case "paths.judge_config":
		cfg.Paths.JudgeConfig = value
	case "store.backend":
		cfg.Store.Backend = value
	case "logging.level":
		cfg.Logging.Level = value
	case "telemetry.enabled":
		cfg.Telemetry.Enabled, err = strconv.ParseBool(value)
	case "telemetry.endpoint":
		cfg.Telemetry.Endpoint = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
	return nil
}

// configPath returns the file config set writes: --config or ~/.sense/config.yaml.
func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	path, err := config.GlobalConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return path, nil
}

// saveConfig writes the configuration as YAML with owner-only permissions.
func saveConfig(cfg *config.SenseConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
