package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/slok/bua/internal/model"
)

// RunConfigYAMLRepository loads run configuration from YAML files.
type RunConfigYAMLRepository struct {
	fs fs.FS
}

// NewRunConfigYAMLRepository creates a new YAML run config repository.
func NewRunConfigYAMLRepository(filesystem fs.FS) *RunConfigYAMLRepository {
	return &RunConfigYAMLRepository{fs: filesystem}
}

// GetRunConfig loads a run configuration from a YAML file and returns a
// validated domain model. Fields absent from the file keep the built-in
// defaults; a file that cannot be read or parsed is an error, never a
// silent fallback.
func (r *RunConfigYAMLRepository) GetRunConfig(ctx context.Context, path string) (*model.RunConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var cfg runConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	result := cfg.toModel()
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &result, nil
}

// runConfig represents the YAML structure for run configuration. Pointer
// fields distinguish "absent" from zero values.
type runConfig struct {
	LLMProvider          *string  `yaml:"llm_provider"`
	LLMModelName         *string  `yaml:"llm_model_name"`
	LLMTemperature       *float64 `yaml:"llm_temperature"`
	LLMBaseURL           *string  `yaml:"llm_base_url"`
	LLMAPIKey            *string  `yaml:"llm_api_key"`
	Headless             *bool    `yaml:"headless"`
	DisableSecurity      *bool    `yaml:"disable_security"`
	ChromePath           *string  `yaml:"chrome_path"`
	WindowW              *int     `yaml:"window_w"`
	WindowH              *int     `yaml:"window_h"`
	SaveTracePath        *string  `yaml:"save_trace_path"`
	EnableRecording      *bool    `yaml:"enable_recording"`
	SaveRecordingPath    *string  `yaml:"save_recording_path"`
	SaveAgentHistoryPath *string  `yaml:"save_agent_history_path"`
	MaxSteps             *int     `yaml:"max_steps"`
	MaxActionsPerStep    *int     `yaml:"max_actions_per_step"`
	UseVision            *bool    `yaml:"use_vision"`
	KeepBrowserOpen      *bool    `yaml:"keep_browser_open"`
}

func (c runConfig) toModel() model.RunConfig {
	cfg := model.DefaultRunConfig()

	if c.LLMProvider != nil {
		cfg.LLM.Provider = *c.LLMProvider
	}
	if c.LLMModelName != nil {
		cfg.LLM.ModelName = *c.LLMModelName
	}
	if c.LLMTemperature != nil {
		cfg.LLM.Temperature = *c.LLMTemperature
	}
	if c.LLMBaseURL != nil {
		cfg.LLM.BaseURL = *c.LLMBaseURL
	}
	if c.LLMAPIKey != nil {
		cfg.LLM.APIKey = *c.LLMAPIKey
	}
	if c.Headless != nil {
		cfg.Browser.Headless = *c.Headless
	}
	if c.DisableSecurity != nil {
		cfg.Browser.DisableSecurity = *c.DisableSecurity
	}
	if c.ChromePath != nil {
		cfg.Browser.ChromePath = *c.ChromePath
	}
	if c.WindowW != nil {
		cfg.Browser.WindowW = *c.WindowW
	}
	if c.WindowH != nil {
		cfg.Browser.WindowH = *c.WindowH
	}
	if c.SaveTracePath != nil {
		cfg.Context.TracePath = *c.SaveTracePath
	}

	// Recording only applies when explicitly enabled, mirroring the
	// enable_recording gate of the original settings file.
	if c.SaveRecordingPath != nil && c.EnableRecording != nil && *c.EnableRecording {
		cfg.Context.RecordingPath = *c.SaveRecordingPath
	}

	if c.SaveAgentHistoryPath != nil {
		cfg.SaveAgentHistoryPath = *c.SaveAgentHistoryPath
	}
	if c.MaxSteps != nil {
		cfg.MaxSteps = *c.MaxSteps
	}
	if c.MaxActionsPerStep != nil {
		cfg.MaxActionsPerStep = *c.MaxActionsPerStep
	}
	if c.UseVision != nil {
		cfg.UseVision = *c.UseVision
	}
	if c.KeepBrowserOpen != nil {
		cfg.KeepBrowserOpen = *c.KeepBrowserOpen
	}

	return cfg
}
