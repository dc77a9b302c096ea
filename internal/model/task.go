package model

import (
	"fmt"
	"time"
)

// TaskStatus represents the state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has been accepted and not yet
	// reached a terminal state.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusCompleted indicates the engine run finished normally.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the execution unit failed at any point.
	TaskStatusFailed TaskStatus = "failed"
)

// Terminal reports whether the status admits no further transition.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task is the for-process-lifetime record of one submitted automation
// request, progressing from pending to exactly one terminal outcome.
//
// All result fields stay empty until the terminal transition, which is
// applied as a single atomic update.
type Task struct {
	ID        string
	Status    TaskStatus
	CreatedAt time.Time

	// Populated on the terminal transition.
	FinalResult   string
	Errors        string
	ModelActions  string
	ModelThoughts string
	RecordingPath string
	TraceFile     string
	HistoryFile   string

	// ResolvedConfig is the effective configuration the run used, kept for
	// auditability. Stays nil until resolution fully succeeds.
	ResolvedConfig *RunConfig
}

// TaskRequest is what a client submits to start a task.
type TaskRequest struct {
	Task       string
	AddInfos   string
	ConfigFile string
	Overrides  RunConfigOverrides
}

// Validate validates the task request.
func (r *TaskRequest) Validate() error {
	if r.Task == "" {
		return fmt.Errorf("task instruction is required: %w", ErrNotValid)
	}
	return nil
}
