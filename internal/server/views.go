package server

import (
	"time"

	"github.com/slok/bua/internal/model"
)

type createTaskRequest struct {
	Task       string `json:"task"`
	AddInfos   string `json:"add_infos"`
	ConfigFile string `json:"config_file"`

	// Per-request configuration overrides. Absent fields leave the base
	// configuration untouched.
	LLMProvider       *string  `json:"llm_provider"`
	LLMModelName      *string  `json:"llm_model_name"`
	LLMTemperature    *float64 `json:"llm_temperature"`
	LLMBaseURL        *string  `json:"llm_base_url"`
	LLMAPIKey         *string  `json:"llm_api_key"`
	Headless          *bool    `json:"headless"`
	DisableSecurity   *bool    `json:"disable_security"`
	ChromePath        *string  `json:"chrome_path"`
	WindowW           *int     `json:"window_w"`
	WindowH           *int     `json:"window_h"`
	SaveTracePath     *string  `json:"save_trace_path"`
	EnableRecording   *bool    `json:"enable_recording"`
	SaveRecordingPath *string  `json:"save_recording_path"`
	MaxSteps          *int     `json:"max_steps"`
	MaxActionsPerStep *int     `json:"max_actions_per_step"`
	UseVision         *bool    `json:"use_vision"`
	KeepBrowserOpen   *bool    `json:"keep_browser_open"`
}

func (r createTaskRequest) toModel() model.TaskRequest {
	return model.TaskRequest{
		Task:       r.Task,
		AddInfos:   r.AddInfos,
		ConfigFile: r.ConfigFile,
		Overrides: model.RunConfigOverrides{
			LLMProvider:       r.LLMProvider,
			LLMModelName:      r.LLMModelName,
			LLMTemperature:    r.LLMTemperature,
			LLMBaseURL:        r.LLMBaseURL,
			LLMAPIKey:         r.LLMAPIKey,
			Headless:          r.Headless,
			DisableSecurity:   r.DisableSecurity,
			ChromePath:        r.ChromePath,
			WindowW:           r.WindowW,
			WindowH:           r.WindowH,
			SaveTracePath:     r.SaveTracePath,
			EnableRecording:   r.EnableRecording,
			SaveRecordingPath: r.SaveRecordingPath,
			MaxSteps:          r.MaxSteps,
			MaxActionsPerStep: r.MaxActionsPerStep,
			UseVision:         r.UseVision,
			KeepBrowserOpen:   r.KeepBrowserOpen,
		},
	}
}

type taskResponse struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func newTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		TaskID:    t.ID,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

type taskResultView struct {
	TaskID         string         `json:"task_id"`
	Status         string         `json:"status"`
	CreatedAt      string         `json:"created_at"`
	FinalResult    string         `json:"final_result"`
	Errors         string         `json:"errors"`
	ModelActions   string         `json:"model_actions"`
	ModelThoughts  string         `json:"model_thoughts"`
	RecordingPath  string         `json:"recording_path"`
	TraceFile      string         `json:"trace_file"`
	HistoryFile    string         `json:"history_file"`
	ResolvedConfig *runConfigView `json:"resolved_config,omitempty"`
}

func newTaskResultView(t *model.Task) taskResultView {
	view := taskResultView{
		TaskID:        t.ID,
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		FinalResult:   t.FinalResult,
		Errors:        t.Errors,
		ModelActions:  t.ModelActions,
		ModelThoughts: t.ModelThoughts,
		RecordingPath: t.RecordingPath,
		TraceFile:     t.TraceFile,
		HistoryFile:   t.HistoryFile,
	}
	if t.ResolvedConfig != nil {
		cfgView := newRunConfigView(*t.ResolvedConfig)
		view.ResolvedConfig = &cfgView
	}
	return view
}

// runConfigView is the audit snapshot of the effective run configuration.
// The LLM API key is deliberately not exposed.
type runConfigView struct {
	LLMProvider          string  `json:"llm_provider"`
	LLMModelName         string  `json:"llm_model_name"`
	LLMTemperature       float64 `json:"llm_temperature"`
	LLMBaseURL           string  `json:"llm_base_url,omitempty"`
	Headless             bool    `json:"headless"`
	DisableSecurity      bool    `json:"disable_security"`
	WindowW              int     `json:"window_w"`
	WindowH              int     `json:"window_h"`
	SaveTracePath        string  `json:"save_trace_path,omitempty"`
	SaveRecordingPath    string  `json:"save_recording_path,omitempty"`
	SaveAgentHistoryPath string  `json:"save_agent_history_path"`
	MaxSteps             int     `json:"max_steps"`
	MaxActionsPerStep    int     `json:"max_actions_per_step"`
	UseVision            bool    `json:"use_vision"`
	KeepBrowserOpen      bool    `json:"keep_browser_open"`
}

func newRunConfigView(cfg model.RunConfig) runConfigView {
	return runConfigView{
		LLMProvider:          cfg.LLM.Provider,
		LLMModelName:         cfg.LLM.ModelName,
		LLMTemperature:       cfg.LLM.Temperature,
		LLMBaseURL:           cfg.LLM.BaseURL,
		Headless:             cfg.Browser.Headless,
		DisableSecurity:      cfg.Browser.DisableSecurity,
		WindowW:              cfg.Browser.WindowW,
		WindowH:              cfg.Browser.WindowH,
		SaveTracePath:        cfg.Context.TracePath,
		SaveRecordingPath:    cfg.Context.RecordingPath,
		SaveAgentHistoryPath: cfg.SaveAgentHistoryPath,
		MaxSteps:             cfg.MaxSteps,
		MaxActionsPerStep:    cfg.MaxActionsPerStep,
		UseVision:            cfg.UseVision,
		KeepBrowserOpen:      cfg.KeepBrowserOpen,
	}
}

type generateKeyRequest struct {
	ExpiresInDays *int `json:"expires_in_days"`
}

type keyResponse struct {
	Key       string `json:"key"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
}

func newKeyResponse(c *model.Credential) keyResponse {
	return keyResponse{
		Key:       c.Token,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		ExpiresAt: c.ExpiresAt.Format(time.RFC3339),
	}
}

type keyInfoView struct {
	CreatedAt  string  `json:"created_at"`
	ExpiresAt  string  `json:"expires_at"`
	IsActive   bool    `json:"is_active"`
	LastUsed   *string `json:"last_used"`
	UsageCount int     `json:"usage_count"`
}

func newKeyInfoView(c *model.Credential) keyInfoView {
	view := keyInfoView{
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
		ExpiresAt:  c.ExpiresAt.Format(time.RFC3339),
		IsActive:   c.Active,
		UsageCount: c.UsageCount,
	}
	if c.LastUsedAt != nil {
		lastUsed := c.LastUsedAt.Format(time.RFC3339)
		view.LastUsed = &lastUsed
	}
	return view
}
