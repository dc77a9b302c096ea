package engine

import (
	"context"

	"github.com/slok/bua/internal/llm"
	"github.com/slok/bua/internal/model"
)

// Engine is the boundary with the external automation engine: it hands out
// browser instances and task-execution agents. Implementations own the
// underlying driver (playwright) or simulate it (fake).
type Engine interface {
	// NewBrowser acquires a browser instance for one run.
	NewBrowser(ctx context.Context, cfg model.BrowserConfig) (Browser, error)

	// NewAgent builds the agent that drives one task to completion.
	NewAgent(ctx context.Context, cfg AgentConfig) (Agent, error)
}

// Browser is an acquired engine browser instance. It is owned by a single
// task for the task's lifetime.
type Browser interface {
	// NewContext acquires the runtime execution context for one run.
	NewContext(ctx context.Context, cfg model.BrowserContextConfig) (BrowserContext, error)

	Close(ctx context.Context) error
}

// BrowserContext is the runtime execution context of one run (isolated
// session, recording, tracing).
type BrowserContext interface {
	Close(ctx context.Context) error
}

// AgentConfig parameterizes a task-execution agent.
type AgentConfig struct {
	// Task is the natural-language instruction.
	Task string
	// AddInfos are auxiliary free-text hints for the agent.
	AddInfos string

	Model     llm.Model
	UseVision bool

	Browser Browser
	Context BrowserContext

	MaxActionsPerStep int

	// HistoryDir is where the engine persists the run history artifact,
	// named {runID}.json.
	HistoryDir string
}

// Agent executes one task. Run is invoked at most once per agent.
type Agent interface {
	// Run drives the task, bounded by maxSteps.
	Run(ctx context.Context, maxSteps int) (*RunResult, error)
}

// RunResult is the engine's account of a finished run. The traces are
// loosely shaped: items can be structured or plain text.
type RunResult struct {
	// ID identifies the run and names its persisted history artifact.
	ID string

	FinalResult   model.ResultValue
	Errors        []model.ResultValue
	ModelActions  []model.ResultValue
	ModelThoughts []model.ResultValue
}
