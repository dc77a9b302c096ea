package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/bua/internal/apikey"
	apptask "github.com/slok/bua/internal/app/task"
	"github.com/slok/bua/internal/engine"
	enginefake "github.com/slok/bua/internal/engine/fake"
	"github.com/slok/bua/internal/llm"
	"github.com/slok/bua/internal/model"
	"github.com/slok/bua/internal/server"
	"github.com/slok/bua/internal/storage/memory"
)

type stubConfigs struct{}

func (stubConfigs) GetRunConfig(ctx context.Context, path string) (*model.RunConfig, error) {
	cfg := model.DefaultRunConfig()
	return &cfg, nil
}

type stubModel struct{}

func (stubModel) Complete(ctx context.Context, system, user string) (string, error) {
	return "", nil
}

type testGateway struct {
	handler http.Handler
	keys    *apikey.Service
	tasks   *apptask.Service
}

func newTestGateway(t *testing.T, mutate func(cfg *server.Config)) *testGateway {
	t.Helper()

	eng, err := enginefake.NewEngine(enginefake.EngineConfig{
		Result: &engine.RunResult{
			ID:          "run-test",
			FinalResult: model.TextResult("done"),
		},
	})
	require.NoError(t, err)

	taskRepo, err := memory.NewTaskRepository(memory.TaskRepositoryConfig{})
	require.NoError(t, err)

	tasks, err := apptask.NewService(apptask.ServiceConfig{
		Engine:     eng,
		Repository: taskRepo,
		Configs:    stubConfigs{},
		Models:     func(model.LLMConfig) (llm.Model, error) { return stubModel{}, nil },
	})
	require.NoError(t, err)

	credRepo, err := memory.NewCredentialRepository(memory.CredentialRepositoryConfig{})
	require.NoError(t, err)

	keys, err := apikey.NewService(apikey.ServiceConfig{Repository: credRepo})
	require.NoError(t, err)

	cfg := server.Config{
		Tasks:             tasks,
		Validator:         keys,
		Keys:              keys,
		OpenKeyGeneration: true,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv, err := server.New(cfg)
	require.NoError(t, err)

	return &testGateway{handler: srv.Handler(), keys: keys, tasks: tasks}
}

func (g *testGateway) do(t *testing.T, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(server.APIKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	g.handler.ServeHTTP(rec, req)
	return rec
}

func (g *testGateway) generateKey(t *testing.T) string {
	t.Helper()

	rec := g.do(t, http.MethodPost, "/api-keys/generate", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Key)
	return resp.Key
}

func TestServerHealth(t *testing.T) {
	gateway := newTestGateway(t, nil)

	// No credential needed.
	rec := gateway.do(t, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestServerAuthentication(t *testing.T) {
	tests := map[string]struct {
		method string
		path   string
		key    func(g *testGateway, t *testing.T) string
		expect int
	}{
		"Missing key is rejected": {
			method: http.MethodGet, path: "/tasks",
			key:    func(*testGateway, *testing.T) string { return "" },
			expect: http.StatusForbidden,
		},

		"Unknown key is rejected": {
			method: http.MethodGet, path: "/tasks",
			key:    func(*testGateway, *testing.T) string { return "bua_nope" },
			expect: http.StatusForbidden,
		},

		"Revoked key is rejected": {
			method: http.MethodGet, path: "/tasks",
			key: func(g *testGateway, t *testing.T) string {
				key := g.generateKey(t)
				rec := g.do(t, http.MethodPost, "/api-keys/revoke", key, "")
				require.Equal(t, http.StatusOK, rec.Code)
				return key
			},
			expect: http.StatusForbidden,
		},

		"Valid key is accepted": {
			method: http.MethodGet, path: "/tasks",
			key:    func(g *testGateway, t *testing.T) string { return g.generateKey(t) },
			expect: http.StatusOK,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			gateway := newTestGateway(t, nil)

			rec := gateway.do(t, tt.method, tt.path, tt.key(gateway, t), "")

			assert.Equal(t, tt.expect, rec.Code)
			if tt.expect == http.StatusForbidden {
				assert.JSONEq(t, `{"detail": "Invalid or expired API key"}`, rec.Body.String())
			}
		})
	}
}

func TestServerTaskFlow(t *testing.T) {
	gateway := newTestGateway(t, nil)
	key := gateway.generateKey(t)

	// Submit.
	rec := gateway.do(t, http.MethodPost, "/tasks", key, `{"task": "open example.com", "max_steps": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var created struct {
		TaskID    string `json:"task_id"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.TaskID)
	assert.Equal(t, "pending", created.Status)
	assert.NotEmpty(t, created.CreatedAt)

	// Poll until terminal.
	var result struct {
		Status         string `json:"status"`
		FinalResult    string `json:"final_result"`
		Errors         string `json:"errors"`
		HistoryFile    string `json:"history_file"`
		ResolvedConfig *struct {
			MaxSteps int `json:"max_steps"`
		} `json:"resolved_config"`
	}
	require.Eventually(t, func() bool {
		rec := gateway.do(t, http.MethodGet, "/tasks/"+created.TaskID, key, "")
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			return false
		}
		return result.Status == "completed" || result.Status == "failed"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, "done", result.FinalResult)
	assert.Empty(t, result.Errors)
	require.NotNil(t, result.ResolvedConfig)
	assert.Equal(t, 3, result.ResolvedConfig.MaxSteps)

	// The listing contains it too.
	rec = gateway.do(t, http.MethodGet, "/tasks", key, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.TaskID, listed[0].TaskID)
}

func TestServerTaskErrors(t *testing.T) {
	gateway := newTestGateway(t, nil)
	key := gateway.generateKey(t)

	t.Run("Unknown task returns 404", func(t *testing.T) {
		rec := gateway.do(t, http.MethodGet, "/tasks/unknown", key, "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"detail": "Task not found"}`, rec.Body.String())
	})

	t.Run("Submission without instruction returns 400", func(t *testing.T) {
		rec := gateway.do(t, http.MethodPost, "/tasks", key, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Malformed body returns 400", func(t *testing.T) {
		rec := gateway.do(t, http.MethodPost, "/tasks", key, `{"task": `)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"detail": "invalid request body"}`, rec.Body.String())
	})
}

func TestServerKeyLifecycle(t *testing.T) {
	gateway := newTestGateway(t, nil)

	t.Run("Generate honors custom expiry", func(t *testing.T) {
		rec := gateway.do(t, http.MethodPost, "/api-keys/generate", "", `{"expires_in_days": 7}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Key       string `json:"key"`
			CreatedAt string `json:"created_at"`
			ExpiresAt string `json:"expires_at"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, strings.HasPrefix(resp.Key, "bua_"))

		created, err := time.Parse(time.RFC3339, resp.CreatedAt)
		require.NoError(t, err)
		expires, err := time.Parse(time.RFC3339, resp.ExpiresAt)
		require.NoError(t, err)
		assert.Equal(t, 7*24*time.Hour, expires.Sub(created))
	})

	t.Run("Rotate swaps the presented key", func(t *testing.T) {
		old := gateway.generateKey(t)

		rec := gateway.do(t, http.MethodPost, "/api-keys/rotate", old, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Key string `json:"key"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEqual(t, old, resp.Key)

		// The old key no longer opens the gate, the new one does.
		assert.Equal(t, http.StatusForbidden, gateway.do(t, http.MethodGet, "/tasks", old, "").Code)
		assert.Equal(t, http.StatusOK, gateway.do(t, http.MethodGet, "/tasks", resp.Key, "").Code)
	})

	t.Run("Rotate with an invalid key returns 400", func(t *testing.T) {
		rec := gateway.do(t, http.MethodPost, "/api-keys/rotate", "bua_nope", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"detail": "Invalid or expired API key"}`, rec.Body.String())
	})

	t.Run("Revoke of an unknown key returns 400", func(t *testing.T) {
		rec := gateway.do(t, http.MethodPost, "/api-keys/revoke", "bua_nope", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Rotate and revoke judge the credential themselves", func(t *testing.T) {
		// No key at all: the operation answers 400, the gate never 403s.
		assert.Equal(t, http.StatusBadRequest, gateway.do(t, http.MethodPost, "/api-keys/rotate", "", "").Code)
		assert.Equal(t, http.StatusBadRequest, gateway.do(t, http.MethodPost, "/api-keys/revoke", "", "").Code)
	})

	t.Run("Active listing accounts usage", func(t *testing.T) {
		fresh := newTestGateway(t, nil)
		key := fresh.generateKey(t)

		// Each authenticated call counts as one use.
		require.Equal(t, http.StatusOK, fresh.do(t, http.MethodGet, "/tasks", key, "").Code)
		rec := fresh.do(t, http.MethodGet, "/api-keys/active", key, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var active map[string]struct {
			IsActive   bool    `json:"is_active"`
			LastUsed   *string `json:"last_used"`
			UsageCount int     `json:"usage_count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
		require.Contains(t, active, key)
		assert.True(t, active[key].IsActive)
		require.NotNil(t, active[key].LastUsed)
		assert.Equal(t, 2, active[key].UsageCount)
	})
}

func TestServerGatedKeyGeneration(t *testing.T) {
	gateway := newTestGateway(t, func(cfg *server.Config) {
		cfg.OpenKeyGeneration = false
	})

	rec := gateway.do(t, http.MethodPost, "/api-keys/generate", "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServerStaticMode(t *testing.T) {
	const masterKey = "super-secret"

	validator, err := apikey.NewStaticValidator(apikey.StaticValidatorConfig{MasterKey: masterKey})
	require.NoError(t, err)

	gateway := newTestGateway(t, func(cfg *server.Config) {
		cfg.Validator = validator
		cfg.Keys = nil
	})

	t.Run("Master key opens the gate", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, gateway.do(t, http.MethodGet, "/tasks", masterKey, "").Code)
		assert.Equal(t, http.StatusForbidden, gateway.do(t, http.MethodGet, "/tasks", "wrong", "").Code)
	})

	t.Run("Key lifecycle routes are absent", func(t *testing.T) {
		rec := gateway.do(t, http.MethodPost, "/api-keys/generate", masterKey, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
