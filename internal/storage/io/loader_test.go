package io_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageio "github.com/slok/bua/internal/storage/io"
)

func TestGetRunConfig(t *testing.T) {
	tests := map[string]struct {
		fs     fstest.MapFS
		path   string
		expErr bool
	}{
		"Missing file should fail": {
			fs:     fstest.MapFS{},
			path:   "missing.yaml",
			expErr: true,
		},

		"Invalid YAML should fail": {
			fs: fstest.MapFS{
				"config.yaml": &fstest.MapFile{Data: []byte("llm_provider: [unclosed")},
			},
			path:   "config.yaml",
			expErr: true,
		},

		"Invalid configuration values should fail": {
			fs: fstest.MapFS{
				"config.yaml": &fstest.MapFile{Data: []byte("max_steps: -5\n")},
			},
			path:   "config.yaml",
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			repo := storageio.NewRunConfigYAMLRepository(tt.fs)

			_, err := repo.GetRunConfig(t.Context(), tt.path)
			if tt.expErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGetRunConfigValues(t *testing.T) {
	t.Run("Absent fields keep the built-in defaults", func(t *testing.T) {
		fs := fstest.MapFS{
			"config.yaml": &fstest.MapFile{Data: []byte(`
llm_model_name: gpt-4o
max_steps: 25
headless: false
`)},
		}

		repo := storageio.NewRunConfigYAMLRepository(fs)
		cfg, err := repo.GetRunConfig(t.Context(), "config.yaml")
		require.NoError(t, err)

		assert.Equal(t, "gpt-4o", cfg.LLM.ModelName)
		assert.Equal(t, 25, cfg.MaxSteps)
		assert.False(t, cfg.Browser.Headless)

		// Defaults survive.
		assert.Equal(t, "openai", cfg.LLM.Provider)
		assert.Equal(t, 1280, cfg.Browser.WindowW)
		assert.Equal(t, "tmp/agent_history", cfg.SaveAgentHistoryPath)
	})

	t.Run("Recording path only applies when recording is enabled", func(t *testing.T) {
		fs := fstest.MapFS{
			"enabled.yaml": &fstest.MapFile{Data: []byte(`
enable_recording: true
save_recording_path: /tmp/recordings
`)},
			"disabled.yaml": &fstest.MapFile{Data: []byte(`
enable_recording: false
save_recording_path: /tmp/recordings
`)},
		}

		repo := storageio.NewRunConfigYAMLRepository(fs)

		enabled, err := repo.GetRunConfig(t.Context(), "enabled.yaml")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/recordings", enabled.Context.RecordingPath)

		disabled, err := repo.GetRunConfig(t.Context(), "disabled.yaml")
		require.NoError(t, err)
		assert.Empty(t, disabled.Context.RecordingPath)
	})
}
