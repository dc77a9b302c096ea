package fake

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/bua/internal/engine"
	"github.com/slok/bua/internal/log"
	"github.com/slok/bua/internal/model"
)

// EngineConfig is the configuration for the fake engine.
type EngineConfig struct {
	// Result is returned by every agent run. When nil a minimal completed
	// result is fabricated.
	Result *engine.RunResult
	// RunErr makes every agent run fail.
	RunErr error
	// BrowserErr makes browser acquisition fail.
	BrowserErr error
	// ContextErr makes context acquisition fail.
	ContextErr error
	// RunDelay delays every agent run, to exercise pending-state readers.
	RunDelay time.Duration

	Logger log.Logger
}

func (c *EngineConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.Fake"})
	return nil
}

// Engine is a fake implementation of the engine.Engine interface. It
// simulates browser-driven task runs without launching anything, for tests
// and browserless deployments.
type Engine struct {
	cfg EngineConfig

	mu             sync.Mutex
	browsersOpen   int
	contextsOpen   int
	browsersClosed int
	contextsClosed int

	logger log.Logger
}

// NewEngine creates a new fake engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		cfg:    cfg,
		logger: cfg.Logger,
	}, nil
}

// NewBrowser acquires a fake browser.
func (e *Engine) NewBrowser(ctx context.Context, cfg model.BrowserConfig) (engine.Browser, error) {
	if e.cfg.BrowserErr != nil {
		return nil, e.cfg.BrowserErr
	}

	e.mu.Lock()
	e.browsersOpen++
	e.mu.Unlock()

	e.logger.Debugf("Acquired fake browser (headless=%t)", cfg.Headless)

	return &browser{engine: e}, nil
}

// NewAgent builds a fake agent.
func (e *Engine) NewAgent(ctx context.Context, cfg engine.AgentConfig) (engine.Agent, error) {
	return &agent{engine: e, cfg: cfg}, nil
}

// OpenBrowsers returns the number of fake browsers acquired and not yet
// closed.
func (e *Engine) OpenBrowsers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.browsersOpen - e.browsersClosed
}

// OpenContexts returns the number of fake contexts acquired and not yet
// closed.
func (e *Engine) OpenContexts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contextsOpen - e.contextsClosed
}

type browser struct {
	engine *Engine
}

func (b *browser) NewContext(ctx context.Context, cfg model.BrowserContextConfig) (engine.BrowserContext, error) {
	if b.engine.cfg.ContextErr != nil {
		return nil, b.engine.cfg.ContextErr
	}

	b.engine.mu.Lock()
	b.engine.contextsOpen++
	b.engine.mu.Unlock()

	return &browserContext{engine: b.engine}, nil
}

func (b *browser) Close(ctx context.Context) error {
	b.engine.mu.Lock()
	defer b.engine.mu.Unlock()
	b.engine.browsersClosed++
	return nil
}

type browserContext struct {
	engine *Engine
}

func (c *browserContext) Close(ctx context.Context) error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	c.engine.contextsClosed++
	return nil
}

type agent struct {
	engine *Engine
	cfg    engine.AgentConfig
}

func (a *agent) Run(ctx context.Context, maxSteps int) (*engine.RunResult, error) {
	if a.engine.cfg.RunDelay > 0 {
		select {
		case <-time.After(a.engine.cfg.RunDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if a.engine.cfg.RunErr != nil {
		return nil, a.engine.cfg.RunErr
	}

	if a.engine.cfg.Result != nil {
		result := *a.engine.cfg.Result
		if result.ID == "" {
			result.ID = ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
		}
		return &result, nil
	}

	return &engine.RunResult{
		ID:          ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		FinalResult: model.TextResult(fmt.Sprintf("fake run of %q finished in %d steps", a.cfg.Task, 1)),
		ModelActions: []model.ResultValue{
			model.StructuredResult{Value: map[string]interface{}{"done": true}},
		},
		ModelThoughts: []model.ResultValue{
			model.TextResult("fake agent has nothing to think about"),
		},
	}, nil
}
