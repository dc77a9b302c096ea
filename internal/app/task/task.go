package task

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/slok/bua/internal/engine"
	"github.com/slok/bua/internal/llm"
	"github.com/slok/bua/internal/log"
	"github.com/slok/bua/internal/model"
	"github.com/slok/bua/internal/storage"
)

// ConfigGetter resolves named run configuration files.
type ConfigGetter interface {
	GetRunConfig(ctx context.Context, path string) (*model.RunConfig, error)
}

// ModelFactory builds a language model handle from its configuration.
type ModelFactory func(cfg model.LLMConfig) (llm.Model, error)

// ServiceConfig is the configuration for the task orchestration service.
type ServiceConfig struct {
	Engine     engine.Engine
	Repository storage.TaskRepository
	Configs    ConfigGetter

	// BaseConfig is the configuration used when a request names no config
	// file. Defaults to the built-in defaults.
	BaseConfig *model.RunConfig

	// Models builds the LLM handle for a run. Defaults to llm.New.
	Models ModelFactory

	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Engine == nil {
		return fmt.Errorf("engine is required")
	}
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Configs == nil {
		return fmt.Errorf("config getter is required")
	}
	if c.BaseConfig == nil {
		cfg := model.DefaultRunConfig()
		c.BaseConfig = &cfg
	}
	if c.Models == nil {
		c.Models = llm.New
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Task"})
	return nil
}

// Service orchestrates automation tasks: it accepts submissions, runs each
// one asynchronously against the engine and owns the task record lifecycle
// from pending to exactly one terminal state.
type Service struct {
	engine     engine.Engine
	repo       storage.TaskRepository
	configs    ConfigGetter
	baseConfig model.RunConfig
	models     ModelFactory
	logger     log.Logger
}

// NewService creates a new task orchestration service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		engine:     cfg.Engine,
		repo:       cfg.Repository,
		configs:    cfg.Configs,
		baseConfig: *cfg.BaseConfig,
		models:     cfg.Models,
		logger:     cfg.Logger,
	}, nil
}

// Submit accepts a task, records it as pending and schedules its execution.
// It returns immediately: the caller discovers the outcome by polling Get.
func (s *Service) Submit(ctx context.Context, req model.TaskRequest) (*model.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task request: %w", err)
	}

	t := model.Task{
		ID:        uuid.NewString(),
		Status:    model.TaskStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("could not store task: %w", err)
	}

	// The execution unit outlives the submitting request, so it gets its
	// own context.
	go s.execute(context.Background(), t.ID, req)

	s.logger.Infof("Submitted task: %s", t.ID)

	return &t, nil
}

// Get returns a task by ID.
func (s *Service) Get(ctx context.Context, id string) (*model.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	return t, nil
}

// List returns all tasks in submission order.
func (s *Service) List(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}

	return tasks, nil
}

// execute is the failure boundary of the execution unit: whatever happens
// inside (including panics), the task ends in exactly one terminal state.
// Once run has resolved the configuration it publishes the snapshot through
// resolved, so every failure after that point keeps it on the record.
func (s *Service) execute(ctx context.Context, id string, req model.TaskRequest) {
	var resolved *model.RunConfig

	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("Execution unit panicked for task %s: %v", id, r)
			s.failTask(ctx, id, resolved, fmt.Sprintf("execution panicked: %v", r))
		}
	}()

	if err := s.run(ctx, id, req, &resolved); err != nil {
		s.logger.Warningf("Task %s failed: %v", id, err)
		s.failTask(ctx, id, resolved, err.Error())
	}
}

// run performs one task run. It writes the completed state itself; any
// returned error makes the caller write the failed state.
func (s *Service) run(ctx context.Context, id string, req model.TaskRequest, resolved **model.RunConfig) error {
	// Resolve the effective configuration. A named file that cannot be
	// resolved fails the task, it is never silently replaced by defaults.
	base := s.baseConfig
	if req.ConfigFile != "" {
		loaded, err := s.configs.GetRunConfig(ctx, req.ConfigFile)
		if err != nil {
			return fmt.Errorf("could not resolve config file %q: %w", req.ConfigFile, err)
		}
		base = *loaded
	}

	merged := req.Overrides.Apply(base)
	if err := merged.Validate(); err != nil {
		return fmt.Errorf("invalid merged config: %w", err)
	}
	*resolved = &merged

	llmModel, err := s.models(merged.LLM)
	if err != nil {
		return fmt.Errorf("could not build LLM handle: %w", err)
	}

	// Acquire engine resources. Release is deferred on every exit path and
	// runs exactly once; failures to release are logged and never change an
	// already-recorded outcome.
	browser, err := s.engine.NewBrowser(ctx, merged.Browser)
	if err != nil {
		return fmt.Errorf("could not acquire browser: %w", err)
	}
	defer func() {
		if merged.KeepBrowserOpen {
			return
		}
		if err := browser.Close(ctx); err != nil {
			s.logger.Errorf("Could not release browser for task %s: %v", id, err)
		}
	}()

	browserCtx, err := browser.NewContext(ctx, merged.ContextConfig())
	if err != nil {
		return fmt.Errorf("could not acquire browser context: %w", err)
	}
	defer func() {
		if merged.KeepBrowserOpen {
			return
		}
		if err := browserCtx.Close(ctx); err != nil {
			s.logger.Errorf("Could not release browser context for task %s: %v", id, err)
		}
	}()

	agent, err := s.engine.NewAgent(ctx, engine.AgentConfig{
		Task:              req.Task,
		AddInfos:          req.AddInfos,
		Model:             llmModel,
		UseVision:         merged.UseVision,
		Browser:           browser,
		Context:           browserCtx,
		MaxActionsPerStep: merged.MaxActionsPerStep,
		HistoryDir:        merged.SaveAgentHistoryPath,
	})
	if err != nil {
		return fmt.Errorf("could not build agent: %w", err)
	}

	result, err := agent.Run(ctx, merged.MaxSteps)
	if err != nil {
		return fmt.Errorf("engine run failed: %w", err)
	}

	s.completeTask(ctx, id, merged, result)

	return nil
}

// completeTask transcribes the run result into the record and moves it to
// completed, all as one atomic update.
func (s *Service) completeTask(ctx context.Context, id string, cfg model.RunConfig, result *engine.RunResult) {
	cfgCopy := cfg
	err := s.repo.UpdateTask(ctx, id, func(t *model.Task) error {
		if t.Status.Terminal() {
			return fmt.Errorf("task %s is already %s: %w", id, t.Status, model.ErrNotValid)
		}

		t.Status = model.TaskStatusCompleted
		t.FinalResult = model.SerializeResult(result.FinalResult)
		t.Errors = model.ListResult(result.Errors).Serialize()
		t.ModelActions = model.ListResult(result.ModelActions).Serialize()
		t.ModelThoughts = model.ListResult(result.ModelThoughts).Serialize()
		t.RecordingPath = cfg.Context.RecordingPath
		t.TraceFile = cfg.Context.TracePath
		t.HistoryFile = filepath.Join(cfg.SaveAgentHistoryPath, result.ID+".json")
		t.ResolvedConfig = &cfgCopy
		return nil
	})
	if err != nil {
		s.logger.Errorf("Could not record completion of task %s: %v", id, err)
		return
	}

	s.logger.Infof("Task completed: %s", id)
}

// failTask moves the task to failed with the error description, unless it
// already reached a terminal state.
func (s *Service) failTask(ctx context.Context, id string, cfg *model.RunConfig, errMsg string) {
	err := s.repo.UpdateTask(ctx, id, func(t *model.Task) error {
		if t.Status.Terminal() {
			return fmt.Errorf("task %s is already %s: %w", id, t.Status, model.ErrNotValid)
		}

		t.Status = model.TaskStatusFailed
		t.Errors = errMsg
		t.ResolvedConfig = cfg
		return nil
	})
	if err != nil {
		s.logger.Errorf("Could not record failure of task %s: %v", id, err)
	}
}
