package model

import (
	"fmt"
)

// RunConfig is the effective configuration for one task run: LLM selection,
// browser launch settings and engine run bounds.
type RunConfig struct {
	LLM     LLMConfig
	Browser BrowserConfig
	Context BrowserContextConfig

	MaxSteps             int
	MaxActionsPerStep    int
	UseVision            bool
	KeepBrowserOpen      bool
	SaveAgentHistoryPath string
}

// LLMConfig selects and parameterizes the language model used to guide a run.
type LLMConfig struct {
	Provider    string
	ModelName   string
	Temperature float64
	BaseURL     string
	APIKey      string
}

// BrowserConfig parameterizes the engine browser instance for one run.
type BrowserConfig struct {
	Headless        bool
	DisableSecurity bool
	ChromePath      string
	WindowW         int
	WindowH         int
}

// BrowserContextConfig parameterizes the runtime execution context for one run.
type BrowserContextConfig struct {
	TracePath     string
	RecordingPath string
	WindowW       int
	WindowH       int
}

// DefaultRunConfig returns the built-in run configuration used when no config
// file is named.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		LLM: LLMConfig{
			Provider:    "openai",
			ModelName:   "gpt-3.5-turbo",
			Temperature: 0.7,
		},
		Browser: BrowserConfig{
			Headless: true,
			WindowW:  1280,
			WindowH:  1100,
		},
		MaxSteps:             100,
		MaxActionsPerStep:    10,
		UseVision:            true,
		SaveAgentHistoryPath: "tmp/agent_history",
	}
}

// Validate validates the run configuration.
func (c *RunConfig) Validate() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm provider is required: %w", ErrNotValid)
	}
	if c.LLM.ModelName == "" {
		return fmt.Errorf("llm model name is required: %w", ErrNotValid)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max steps must be positive: %w", ErrNotValid)
	}
	if c.MaxActionsPerStep <= 0 {
		return fmt.Errorf("max actions per step must be positive: %w", ErrNotValid)
	}
	if c.Browser.WindowW <= 0 || c.Browser.WindowH <= 0 {
		return fmt.Errorf("window size must be positive: %w", ErrNotValid)
	}
	return nil
}

// ContextConfig derives the runtime execution context settings from the run
// configuration: recording only when enabled, viewport from the browser
// window size.
func (c *RunConfig) ContextConfig() BrowserContextConfig {
	cc := c.Context
	cc.WindowW = c.Browser.WindowW
	cc.WindowH = c.Browser.WindowH
	return cc
}

// RunConfigOverrides carries per-request overrides for a base run
// configuration. Nil fields leave the base value untouched.
type RunConfigOverrides struct {
	LLMProvider       *string
	LLMModelName      *string
	LLMTemperature    *float64
	LLMBaseURL        *string
	LLMAPIKey         *string
	Headless          *bool
	DisableSecurity   *bool
	ChromePath        *string
	WindowW           *int
	WindowH           *int
	SaveTracePath     *string
	EnableRecording   *bool
	SaveRecordingPath *string
	MaxSteps          *int
	MaxActionsPerStep *int
	UseVision         *bool
	KeepBrowserOpen   *bool
}

// Apply overlays the non-nil override fields onto the base configuration and
// returns the merged result.
func (o RunConfigOverrides) Apply(base RunConfig) RunConfig {
	cfg := base

	if o.LLMProvider != nil {
		cfg.LLM.Provider = *o.LLMProvider
	}
	if o.LLMModelName != nil {
		cfg.LLM.ModelName = *o.LLMModelName
	}
	if o.LLMTemperature != nil {
		cfg.LLM.Temperature = *o.LLMTemperature
	}
	if o.LLMBaseURL != nil {
		cfg.LLM.BaseURL = *o.LLMBaseURL
	}
	if o.LLMAPIKey != nil {
		cfg.LLM.APIKey = *o.LLMAPIKey
	}
	if o.Headless != nil {
		cfg.Browser.Headless = *o.Headless
	}
	if o.DisableSecurity != nil {
		cfg.Browser.DisableSecurity = *o.DisableSecurity
	}
	if o.ChromePath != nil {
		cfg.Browser.ChromePath = *o.ChromePath
	}
	if o.WindowW != nil {
		cfg.Browser.WindowW = *o.WindowW
	}
	if o.WindowH != nil {
		cfg.Browser.WindowH = *o.WindowH
	}
	if o.SaveTracePath != nil {
		cfg.Context.TracePath = *o.SaveTracePath
	}
	// A recording path only applies together with enable_recording=true, the
	// same gate the YAML loader enforces. Disabling clears any inherited path.
	if o.SaveRecordingPath != nil && o.EnableRecording != nil && *o.EnableRecording {
		cfg.Context.RecordingPath = *o.SaveRecordingPath
	}
	if o.EnableRecording != nil && !*o.EnableRecording {
		cfg.Context.RecordingPath = ""
	}
	if o.MaxSteps != nil {
		cfg.MaxSteps = *o.MaxSteps
	}
	if o.MaxActionsPerStep != nil {
		cfg.MaxActionsPerStep = *o.MaxActionsPerStep
	}
	if o.UseVision != nil {
		cfg.UseVision = *o.UseVision
	}
	if o.KeepBrowserOpen != nil {
		cfg.KeepBrowserOpen = *o.KeepBrowserOpen
	}

	return cfg
}
