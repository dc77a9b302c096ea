package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/bua/internal/apikey"
	apptask "github.com/slok/bua/internal/app/task"
	"github.com/slok/bua/internal/engine"
	enginefake "github.com/slok/bua/internal/engine/fake"
	engineplaywright "github.com/slok/bua/internal/engine/playwright"
	"github.com/slok/bua/internal/log"
	loglogrus "github.com/slok/bua/internal/log/logrus"
	"github.com/slok/bua/internal/model"
	"github.com/slok/bua/internal/server"
	storageio "github.com/slok/bua/internal/storage/io"
	"github.com/slok/bua/internal/storage/memory"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"

	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	// AuthModeAPIKey gates requests with issued per-key credentials.
	AuthModeAPIKey = "apikey"
	// AuthModeStatic gates requests with one shared master key.
	AuthModeStatic = "static"

	// EnginePlaywright runs tasks against a real browser.
	EnginePlaywright = "playwright"
	// EngineFake simulates runs, for tests and browserless deployments.
	EngineFake = "fake"
)

// Config holds the application flag configuration.
type Config struct {
	ListenAddress     string
	AuthMode          string
	MasterKey         string
	OpenKeyGeneration bool
	Engine            string
	SkipInstall       bool
	ConfigDir         string
	BaseConfigFile    string

	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
}

// NewConfig parses the command line flags.
func NewConfig(args []string) (*Config, error) {
	c := &Config{}

	app := kingpin.New("bua", "Browser automation task gateway.")
	app.DefaultEnvars()

	app.Flag("listen-address", "Address the HTTP server listens on.").Default(":8000").StringVar(&c.ListenAddress)
	app.Flag("auth-mode", "Credential gate implementation.").Default(AuthModeAPIKey).EnumVar(&c.AuthMode, AuthModeAPIKey, AuthModeStatic)
	app.Flag("master-key", "Shared secret (required for static auth mode).").StringVar(&c.MasterKey)
	app.Flag("open-key-generation", "Leave API key generation unauthenticated.").Default("true").BoolVar(&c.OpenKeyGeneration)
	app.Flag("engine", "Automation engine.").Default(EnginePlaywright).EnumVar(&c.Engine, EnginePlaywright, EngineFake)
	app.Flag("skip-playwright-install", "Assume playwright browsers are preinstalled.").BoolVar(&c.SkipInstall)
	app.Flag("config-dir", "Directory request config files are resolved against.").Default(".").StringVar(&c.ConfigDir)
	app.Flag("base-config", "Base run config YAML, relative to the config dir.").StringVar(&c.BaseConfigFile)

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	if _, err := app.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("invalid command configuration: %w", err)
	}

	if c.AuthMode == AuthModeStatic && c.MasterKey == "" {
		return nil, fmt.Errorf("--master-key is required with static auth mode")
	}

	return c, nil
}

// Run runs the main application.
func Run(ctx context.Context, args []string, stderr io.Writer) error {
	config, err := NewConfig(args)
	if err != nil {
		return err
	}

	logger := getLogger(*config, stderr)

	// Storage.
	taskRepo, err := memory.NewTaskRepository(memory.TaskRepositoryConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create task repository: %w", err)
	}

	configRepo := storageio.NewRunConfigYAMLRepository(os.DirFS(config.ConfigDir))

	// Base run configuration.
	baseConfig := model.DefaultRunConfig()
	if config.BaseConfigFile != "" {
		loaded, err := configRepo.GetRunConfig(ctx, config.BaseConfigFile)
		if err != nil {
			return fmt.Errorf("could not load base config: %w", err)
		}
		baseConfig = *loaded
	}

	// Credential gate.
	var validator apikey.Validator
	var keySvc *apikey.Service
	switch config.AuthMode {
	case AuthModeAPIKey:
		credentialRepo, err := memory.NewCredentialRepository(memory.CredentialRepositoryConfig{Logger: logger})
		if err != nil {
			return fmt.Errorf("could not create credential repository: %w", err)
		}
		keySvc, err = apikey.NewService(apikey.ServiceConfig{
			Repository: credentialRepo,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("could not create API key service: %w", err)
		}
		validator = keySvc
	case AuthModeStatic:
		validator, err = apikey.NewStaticValidator(apikey.StaticValidatorConfig{
			MasterKey: config.MasterKey,
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("could not create static validator: %w", err)
		}
	}

	// Engine.
	var eng engine.Engine
	switch config.Engine {
	case EnginePlaywright:
		eng, err = engineplaywright.NewEngine(engineplaywright.EngineConfig{
			SkipInstall: config.SkipInstall,
			Logger:      logger,
		})
	case EngineFake:
		eng, err = enginefake.NewEngine(enginefake.EngineConfig{Logger: logger})
	}
	if err != nil {
		return fmt.Errorf("could not create engine: %w", err)
	}

	// Task orchestration.
	taskSvc, err := apptask.NewService(apptask.ServiceConfig{
		Engine:     eng,
		Repository: taskRepo,
		Configs:    configRepo,
		BaseConfig: &baseConfig,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task service: %w", err)
	}

	// HTTP server.
	srv, err := server.New(server.Config{
		Addr:              config.ListenAddress,
		Tasks:             taskSvc,
		Validator:         validator,
		Keys:              keySvc,
		OpenKeyGeneration: config.OpenKeyGeneration,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("could not create HTTP server: %w", err)
	}

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// HTTP server.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				return srv.ListenAndServe(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger.
func getLogger(config Config, stderr io.Writer) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	logrusLog := logrus.New()
	logrusLog.Out = stderr
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	switch config.LoggerType {
	case LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
