package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/bua/internal/model"
)

func strPtr(s string) *string   { return &s }
func intPtr(i int) *int         { return &i }
func boolPtr(b bool) *bool      { return &b }
func f64Ptr(f float64) *float64 { return &f }

func TestDefaultRunConfig(t *testing.T) {
	cfg := model.DefaultRunConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.ModelName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 100, cfg.MaxSteps)
	assert.Equal(t, "tmp/agent_history", cfg.SaveAgentHistoryPath)
}

func TestRunConfigValidate(t *testing.T) {
	tests := map[string]struct {
		mutate func(cfg *model.RunConfig)
		expErr bool
	}{
		"Defaults are valid": {
			mutate: func(cfg *model.RunConfig) {},
		},

		"Missing provider is invalid": {
			mutate: func(cfg *model.RunConfig) { cfg.LLM.Provider = "" },
			expErr: true,
		},

		"Missing model name is invalid": {
			mutate: func(cfg *model.RunConfig) { cfg.LLM.ModelName = "" },
			expErr: true,
		},

		"Non-positive max steps is invalid": {
			mutate: func(cfg *model.RunConfig) { cfg.MaxSteps = 0 },
			expErr: true,
		},

		"Non-positive window size is invalid": {
			mutate: func(cfg *model.RunConfig) { cfg.Browser.WindowW = 0 },
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := model.DefaultRunConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, model.ErrNotValid))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRunConfigOverridesApply(t *testing.T) {
	base := model.DefaultRunConfig()

	t.Run("Empty overrides leave the base untouched", func(t *testing.T) {
		merged := model.RunConfigOverrides{}.Apply(base)
		assert.Equal(t, base, merged)
	})

	t.Run("Non-nil fields overlay the base", func(t *testing.T) {
		overrides := model.RunConfigOverrides{
			LLMModelName:      strPtr("gpt-4o"),
			LLMTemperature:    f64Ptr(0.1),
			Headless:          boolPtr(false),
			WindowW:           intPtr(1920),
			MaxSteps:          intPtr(1),
			EnableRecording:   boolPtr(true),
			SaveRecordingPath: strPtr("/tmp/recordings"),
			KeepBrowserOpen:   boolPtr(true),
		}

		merged := overrides.Apply(base)

		assert.Equal(t, "gpt-4o", merged.LLM.ModelName)
		assert.Equal(t, 0.1, merged.LLM.Temperature)
		assert.False(t, merged.Browser.Headless)
		assert.Equal(t, 1920, merged.Browser.WindowW)
		assert.Equal(t, 1, merged.MaxSteps)
		assert.Equal(t, "/tmp/recordings", merged.Context.RecordingPath)
		assert.True(t, merged.KeepBrowserOpen)

		// Untouched fields keep the base values.
		assert.Equal(t, base.LLM.Provider, merged.LLM.Provider)
		assert.Equal(t, base.Browser.WindowH, merged.Browser.WindowH)
	})

	t.Run("Disabling recording clears the recording path", func(t *testing.T) {
		withRecording := base
		withRecording.Context.RecordingPath = "/tmp/recordings"

		merged := model.RunConfigOverrides{EnableRecording: boolPtr(false)}.Apply(withRecording)
		assert.Empty(t, merged.Context.RecordingPath)
	})

	t.Run("Recording path without enable_recording is ignored", func(t *testing.T) {
		merged := model.RunConfigOverrides{SaveRecordingPath: strPtr("/tmp/recordings")}.Apply(base)
		assert.Empty(t, merged.Context.RecordingPath)
	})
}

func TestRunConfigContextConfig(t *testing.T) {
	cfg := model.DefaultRunConfig()
	cfg.Context.TracePath = "/tmp/traces"

	cc := cfg.ContextConfig()

	assert.Equal(t, "/tmp/traces", cc.TracePath)
	assert.Equal(t, cfg.Browser.WindowW, cc.WindowW)
	assert.Equal(t, cfg.Browser.WindowH, cc.WindowH)
}

func TestTaskRequestValidate(t *testing.T) {
	t.Run("Missing instruction is invalid", func(t *testing.T) {
		req := model.TaskRequest{}
		assert.True(t, errors.Is(req.Validate(), model.ErrNotValid))
	})

	t.Run("Instruction is enough", func(t *testing.T) {
		req := model.TaskRequest{Task: "open example.com"}
		assert.NoError(t, req.Validate())
	})
}
