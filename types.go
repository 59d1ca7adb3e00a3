package ownertasks

import "github.com/ownertask/go-owner-tasks/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the ownertasks package for most use cases.

// Task is one execution of a Runner on behalf of an owner
type Task = core.Task

// TaskState is the lifecycle state of a Task
type TaskState = core.TaskState

// Runner is the unit of work and its callbacks
type Runner = core.Runner

// BaseRunner provides no-op callbacks for embedding
type BaseRunner = core.BaseRunner

// RunnerFuncs adapts plain functions to Runner
type RunnerFuncs = core.RunnerFuncs

// TaskManager submits tasks and cancels them per owner
type TaskManager = core.TaskManager

// TaskManagerConfig configures a TaskManager
type TaskManagerConfig = core.TaskManagerConfig

// Executor is the worker pool contract a TaskManager submits to
type Executor = core.Executor

// Registry tracks live tasks per owner
type Registry = core.Registry

// State constants
const (
	StateNew       = core.StateNew
	StateRunning   = core.StateRunning
	StateCancelled = core.StateCancelled
	StateForfeited = core.StateForfeited
	StateError     = core.StateError
	StateFinished  = core.StateFinished
)

// Errors
var (
	ErrInvalidArgument = core.ErrInvalidArgument
	ErrIllegalState    = core.ErrIllegalState
	ErrClosed          = core.ErrClosed
	ErrRejected        = core.ErrRejected
)

// Constructors
var (
	NewRegistry              = core.NewRegistry
	DefaultTaskManagerConfig = core.DefaultTaskManagerConfig
)

// NewWeakRegistry returns a Registry that holds *O owners weakly.
func NewWeakRegistry[O any]() Registry {
	return core.NewWeakRegistry[O]()
}

// NewTaskManager creates a TaskManager on the given executor.
func NewTaskManager(executor Executor, config *TaskManagerConfig) *TaskManager {
	return core.NewTaskManager(executor, config)
}

// NewDefaultTaskManager creates a TaskManager backed by a new
// CachedThreadPool, the unbounded on-demand pool. Shutdown on the manager
// also shuts the pool down.
func NewDefaultTaskManager(name string) *TaskManager {
	cfg := core.DefaultTaskManagerConfig()
	if name != "" {
		cfg.Name = name
	}
	return core.NewTaskManager(NewCachedThreadPool(cfg.Name+"-pool"), cfg)
}
