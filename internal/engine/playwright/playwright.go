package playwright

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/slok/bua/internal/engine"
	"github.com/slok/bua/internal/log"
	"github.com/slok/bua/internal/model"
)

// EngineConfig is the configuration for the playwright engine.
type EngineConfig struct {
	// SkipInstall disables the driver/browser download on first use, for
	// environments where the driver is preinstalled.
	SkipInstall bool

	Logger log.Logger
}

func (c *EngineConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.Playwright"})
	return nil
}

// Engine is the playwright implementation of the engine.Engine interface.
// The driver is started lazily on the first browser acquisition and shared
// across runs; browsers and contexts are per-run and owned by their task.
type Engine struct {
	cfg EngineConfig

	initOnce sync.Once
	initErr  error
	pw       *playwright.Playwright

	logger log.Logger
}

// NewEngine creates a new playwright engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		cfg:    cfg,
		logger: cfg.Logger,
	}, nil
}

func (e *Engine) init() error {
	e.initOnce.Do(func() {
		opts := &playwright.RunOptions{
			Verbose: false,
			Stdout:  io.Discard,
			Stderr:  io.Discard,
		}

		if !e.cfg.SkipInstall {
			if err := playwright.Install(opts); err != nil {
				e.initErr = fmt.Errorf("could not install playwright: %w", err)
				return
			}
		}

		pw, err := playwright.Run(opts)
		if err != nil {
			e.initErr = fmt.Errorf("could not start playwright: %w", err)
			return
		}

		e.pw = pw
		e.logger.Debugf("Playwright driver started")
	})

	return e.initErr
}

// NewBrowser launches a Chromium instance for one run.
func (e *Engine) NewBrowser(ctx context.Context, cfg model.BrowserConfig) (engine.Browser, error) {
	if err := e.init(); err != nil {
		return nil, err
	}

	args := []string{fmt.Sprintf("--window-size=%d,%d", cfg.WindowW, cfg.WindowH)}
	if cfg.DisableSecurity {
		args = append(args,
			"--disable-web-security",
			"--disable-features=IsolateOrigins,site-per-process",
		)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     args,
	}
	if cfg.ChromePath != "" {
		launchOpts.ExecutablePath = playwright.String(cfg.ChromePath)
	}

	b, err := e.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	e.logger.Debugf("Launched browser (headless=%t)", cfg.Headless)

	return &browser{pwBrowser: b, logger: e.logger}, nil
}

// NewAgent builds an LLM-guided agent over a previously acquired context.
func (e *Engine) NewAgent(ctx context.Context, cfg engine.AgentConfig) (engine.Agent, error) {
	bCtx, ok := cfg.Context.(*browserContext)
	if !ok {
		return nil, fmt.Errorf("context was not acquired from the playwright engine: %w", model.ErrNotValid)
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("model is required: %w", model.ErrNotValid)
	}

	return newAgent(cfg, bCtx.page, e.logger), nil
}

type browser struct {
	pwBrowser playwright.Browser
	logger    log.Logger
}

func (b *browser) NewContext(ctx context.Context, cfg model.BrowserContextConfig) (engine.BrowserContext, error) {
	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  cfg.WindowW,
			Height: cfg.WindowH,
		},
	}
	if cfg.RecordingPath != "" {
		contextOpts.RecordVideo = &playwright.RecordVideo{Dir: cfg.RecordingPath}
	}

	pwCtx, err := b.pwBrowser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("could not create context: %w", err)
	}

	if cfg.TracePath != "" {
		err := pwCtx.Tracing().Start(playwright.TracingStartOptions{
			Screenshots: playwright.Bool(true),
			Snapshots:   playwright.Bool(true),
		})
		if err != nil {
			_ = pwCtx.Close()
			return nil, fmt.Errorf("could not start tracing: %w", err)
		}
	}

	page, err := pwCtx.NewPage()
	if err != nil {
		_ = pwCtx.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	return &browserContext{
		pwContext: pwCtx,
		page:      page,
		tracePath: cfg.TracePath,
		logger:    b.logger,
	}, nil
}

func (b *browser) Close(ctx context.Context) error {
	if err := b.pwBrowser.Close(); err != nil {
		return fmt.Errorf("could not close browser: %w", err)
	}
	return nil
}

type browserContext struct {
	pwContext playwright.BrowserContext
	page      playwright.Page
	tracePath string
	logger    log.Logger
}

func (c *browserContext) Close(ctx context.Context) error {
	if c.tracePath != "" {
		tracePath := filepath.Join(c.tracePath, "trace.zip")
		if err := c.pwContext.Tracing().Stop(tracePath); err != nil {
			c.logger.Warningf("Could not persist trace: %v", err)
		}
	}

	if err := c.pwContext.Close(); err != nil {
		return fmt.Errorf("could not close context: %w", err)
	}
	return nil
}
