package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// Executor: the worker pool a TaskManager submits to
// =============================================================================

// Executor runs submitted work on some goroutine.
//
// Execute must not block waiting for the work to finish. After Shutdown it
// must report ErrClosed instead of silently dropping work.
type Executor interface {
	Execute(work func(ctx context.Context)) error
	Shutdown()
}

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called by a worker pool when submitted work panics. For
// tasks this only happens from runner callbacks: panics in PreExecute and
// Execute are delivered to OnError instead.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context of the worker that ran the task
	// - name: The name of the pool or manager where the panic occurred
	// - workerID: The ID of the worker, -1 for on-demand goroutines
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, name string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, name string, workerID int, panicInfo any, stackTrace []byte) {
	if workerID >= 0 {
		fmt.Printf("[Worker %d @ %s] Panic: %v\nStack trace:\n%s",
			workerID, name, panicInfo, stackTrace)
	} else {
		fmt.Printf("[%s] Panic: %v\nStack trace:\n%s",
			name, panicInfo, stackTrace)
	}
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task lifecycle metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast; they are called on worker goroutines.
type Metrics interface {
	// RecordTaskSubmitted records that a task was accepted by a manager.
	RecordTaskSubmitted(managerName string)

	// RecordTaskFinished records the terminal state of a task and how long it ran.
	RecordTaskFinished(managerName string, state TaskState, duration time.Duration)

	// RecordTaskPanic records that a runner callback panicked.
	RecordTaskPanic(managerName string, panicInfo any)

	// RecordTaskRejected records that a task could not be submitted.
	//
	// Parameters:
	// - managerName: The name of the task manager
	// - reason: Why the task was rejected (e.g., "closed", "executor")
	RecordTaskRejected(managerName string, reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskSubmitted(managerName string) {}

func (m *NilMetrics) RecordTaskFinished(managerName string, state TaskState, duration time.Duration) {
}

func (m *NilMetrics) RecordTaskPanic(managerName string, panicInfo any) {}

func (m *NilMetrics) RecordTaskRejected(managerName string, reason string) {}

// =============================================================================
// TaskManagerConfig: Configuration for TaskManager
// =============================================================================

// TaskManagerConfig holds configuration options for TaskManager.
// All fields are optional; nil values are replaced with defaults.
type TaskManagerConfig struct {
	// Name labels logs, metrics and spans. Defaults to "tasks".
	Name string

	// Registry tracks tasks per owner. Defaults to NewRegistry().
	Registry Registry

	// Logger defaults to NoOpLogger.
	Logger Logger

	// Metrics defaults to NilMetrics.
	Metrics Metrics

	// Tracer defaults to the tracer of the global OpenTelemetry provider.
	Tracer trace.Tracer

	// HistoryCapacity bounds RecentTasks. Defaults to 100.
	HistoryCapacity int
}

// DefaultTaskManagerConfig returns a config with default handlers.
func DefaultTaskManagerConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		Name:            defaultManagerName,
		Registry:        NewRegistry(),
		Logger:          NewNoOpLogger(),
		Metrics:         &NilMetrics{},
		Tracer:          defaultTracer(),
		HistoryCapacity: defaultTaskHistoryCapacity,
	}
}
