package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const defaultManagerName = "tasks"

// TaskManager submits tasks to an Executor, indexes them by owner and offers
// individual and per-owner cancellation.
//
// It is safe for concurrent use, including from inside runner callbacks.
type TaskManager struct {
	executor Executor
	registry Registry
	logger   Logger
	metrics  Metrics
	tracer   trace.Tracer
	history  *executionHistory

	// submitMu orders Execute against Shutdown: Execute holds the read side
	// while registering and submitting.
	submitMu sync.RWMutex
	closed   atomic.Bool

	// idleMu guards idle, which is closed whenever live is zero.
	idleMu sync.Mutex
	idle   chan struct{}

	live      atomic.Int64
	submitted atomic.Int64
	rejected  atomic.Int64
	cancelled atomic.Int64
	forfeited atomic.Int64
	failed    atomic.Int64
	finished  atomic.Int64

	nameMu sync.Mutex
	name   string
}

// NewTaskManager creates a TaskManager that runs tasks on executor.
// Panics if executor is nil.
func NewTaskManager(executor Executor, config *TaskManagerConfig) *TaskManager {
	if executor == nil {
		panic("TaskManager: executor must not be nil")
	}

	m := &TaskManager{executor: executor, idle: make(chan struct{})}
	close(m.idle)

	// Apply config
	if config != nil {
		m.name = config.Name
		m.registry = config.Registry
		m.logger = config.Logger
		m.metrics = config.Metrics
		m.tracer = config.Tracer
		m.history = newExecutionHistory(config.HistoryCapacity)
	}

	// Use defaults if not provided
	if m.name == "" {
		m.name = defaultManagerName
	}
	if m.registry == nil {
		m.registry = NewRegistry()
	}
	if m.logger == nil {
		m.logger = NewNoOpLogger()
	}
	if m.metrics == nil {
		m.metrics = &NilMetrics{}
	}
	if m.tracer == nil {
		m.tracer = defaultTracer()
	}
	if m.history == nil {
		m.history = newExecutionHistory(defaultTaskHistoryCapacity)
	}

	return m
}

// Name returns the name used in logs, metrics and spans.
func (m *TaskManager) Name() string {
	m.nameMu.Lock()
	defer m.nameMu.Unlock()
	return m.name
}

// SetName sets the name used in logs, metrics and spans.
func (m *TaskManager) SetName(name string) {
	m.nameMu.Lock()
	defer m.nameMu.Unlock()
	m.name = name
}

// IsClosed returns true once Shutdown has been called.
func (m *TaskManager) IsClosed() bool {
	return m.closed.Load()
}

// =============================================================================
// Submission
// =============================================================================

// Execute wraps runner in a Task owned by owner, registers it and hands it to
// the executor. It returns ErrInvalidArgument for a nil runner or owner and
// ErrClosed after Shutdown. If the executor refuses the work, the task is
// unregistered and an error wrapping ErrRejected is returned.
func (m *TaskManager) Execute(runner Runner, owner any) (*Task, error) {
	t, err := NewTask(runner, owner)
	if err != nil {
		return nil, err
	}
	t.registry = m.registry

	m.submitMu.RLock()
	defer m.submitMu.RUnlock()

	if m.closed.Load() {
		m.reject("closed")
		return nil, ErrClosed
	}

	if err := m.registry.Add(owner, t); err != nil {
		return nil, err
	}

	m.taskStarted()
	if err := m.executor.Execute(m.work(t)); err != nil {
		m.taskDone()
		m.registry.Remove(owner, t)
		m.reject("executor")
		m.logger.Warn("task rejected by executor",
			F("manager", m.Name()), F("task", t.ID().Short()), F("error", err))
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}

	m.submitted.Add(1)
	m.metrics.RecordTaskSubmitted(m.Name())
	m.logger.Debug("task submitted",
		F("manager", m.Name()), F("task", t.ID().Short()), F("owner", ownerTypeName(owner)))
	return t, nil
}

func (m *TaskManager) reject(reason string) {
	m.rejected.Add(1)
	m.metrics.RecordTaskRejected(m.Name(), reason)
}

// work is what the executor runs for t. Callback panics are recorded and
// re-raised so the pool's PanicHandler sees them; t has already left the
// registry by then.
func (m *TaskManager) work(t *Task) func(ctx context.Context) {
	return func(ctx context.Context) {
		name := m.Name()
		ctx, span := startTaskSpan(ctx, m.tracer, name, t)

		panicked := true
		defer func() {
			if panicked {
				rec := recover()
				if rec == nil {
					// runtime.Goexit from a callback
					m.finish(name, t, false)
					endTaskSpan(span, t, false)
					return
				}
				m.metrics.RecordTaskPanic(name, rec)
				m.logger.Error("task callback panicked",
					F("manager", name), F("task", t.ID().Short()), F("panic", rec))
				m.finish(name, t, true)
				endTaskSpan(span, t, true)
				panic(rec)
			}
			m.finish(name, t, false)
			endTaskSpan(span, t, false)
		}()

		if err := t.Run(ctx); err != nil {
			m.logger.Error("task run refused", F("manager", name), F("task", t.ID().Short()), F("error", err))
		}
		panicked = false
	}
}

func (m *TaskManager) finish(name string, t *Task, panicked bool) {
	// live drops last so that WaitIdle observes counters and history.
	defer m.taskDone()

	state := t.State()
	switch state {
	case StateCancelled:
		m.cancelled.Add(1)
	case StateForfeited:
		m.forfeited.Add(1)
	case StateError:
		m.failed.Add(1)
	case StateFinished:
		m.finished.Add(1)
	}

	duration := t.Duration()
	m.metrics.RecordTaskFinished(name, state, duration)

	finishedAt := time.Now()
	m.history.Add(TaskExecutionRecord{
		TaskID:     t.ID(),
		Manager:    name,
		OwnerType:  ownerTypeName(t.Owner()),
		State:      state,
		StartedAt:  finishedAt.Add(-duration),
		FinishedAt: finishedAt,
		Duration:   duration,
		Panicked:   panicked,
	})

	if err := t.Err(); err != nil && state == StateError {
		m.logger.Debug("task failed", F("manager", name), F("task", t.ID().Short()), F("error", err))
		return
	}
	m.logger.Debug("task done", F("manager", name), F("task", t.ID().Short()), F("state", state))
}

// =============================================================================
// Cancellation
// =============================================================================

// Cancel moves t to CANCELLED unless it is already terminal and removes it
// from the registry right away. It is idempotent and never blocks on the
// task. It reports whether this call cancelled the task.
func (m *TaskManager) Cancel(t *Task) bool {
	if t == nil {
		return false
	}
	ok := t.Cancel()
	m.registry.Remove(t.Owner(), t)
	return ok
}

// Forfeit abandons t: no further callback is invoked. Like Cancel it removes
// t from the registry right away.
func (m *TaskManager) Forfeit(t *Task) bool {
	if t == nil {
		return false
	}
	ok := t.Forfeit()
	m.registry.Remove(t.Owner(), t)
	return ok
}

// CancelAllFor cancels the tasks registered for owner at call time.
// Tasks added concurrently may be missed. It returns the number cancelled.
func (m *TaskManager) CancelAllFor(owner any) int {
	n := 0
	for _, t := range m.registry.Get(owner) {
		if m.Cancel(t) {
			n++
		}
	}
	return n
}

// ForfeitAllFor forfeits the tasks registered for owner at call time.
// It returns the number forfeited.
func (m *TaskManager) ForfeitAllFor(owner any) int {
	n := 0
	for _, t := range m.registry.Get(owner) {
		if m.Forfeit(t) {
			n++
		}
	}
	return n
}

// Tasks returns a snapshot of the live tasks of owner.
func (m *TaskManager) Tasks(owner any) []*Task {
	return m.registry.Get(owner)
}

// Owners returns a snapshot of the owners that currently have live tasks.
func (m *TaskManager) Owners() []any {
	return m.registry.Owners()
}

// =============================================================================
// Lifecycle
// =============================================================================

// Shutdown forfeits every task of every known owner, then shuts the executor
// down. Later calls to Execute return ErrClosed. Shutdown is idempotent and
// does not wait for running tasks; use WaitIdle for that.
func (m *TaskManager) Shutdown() {
	m.submitMu.Lock()
	if m.closed.Load() {
		m.submitMu.Unlock()
		return
	}
	m.closed.Store(true)
	m.submitMu.Unlock()

	forfeited := 0
	for _, owner := range m.registry.Owners() {
		forfeited += m.ForfeitAllFor(owner)
	}

	m.executor.Shutdown()
	m.logger.Info("task manager shut down", F("manager", m.Name()), F("forfeited", forfeited))
}

// WaitIdle blocks until no submitted task is still running or ctx is done.
// Tasks submitted while it waits extend the wait.
func (m *TaskManager) WaitIdle(ctx context.Context) error {
	for {
		m.idleMu.Lock()
		idle := m.idle
		m.idleMu.Unlock()

		select {
		case <-idle:
			if m.live.Load() == 0 {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *TaskManager) taskStarted() {
	m.idleMu.Lock()
	defer m.idleMu.Unlock()
	if m.live.Add(1) == 1 {
		m.idle = make(chan struct{})
	}
}

func (m *TaskManager) taskDone() {
	m.idleMu.Lock()
	defer m.idleMu.Unlock()
	if m.live.Add(-1) == 0 {
		close(m.idle)
	}
}

// =============================================================================
// Observability
// =============================================================================

// Stats returns current observability data for this manager.
func (m *TaskManager) Stats() ManagerStats {
	return ManagerStats{
		Name:      m.Name(),
		Owners:    len(m.registry.Owners()),
		Live:      int(m.live.Load()),
		Submitted: m.submitted.Load(),
		Rejected:  m.rejected.Load(),
		Cancelled: m.cancelled.Load(),
		Forfeited: m.forfeited.Load(),
		Failed:    m.failed.Load(),
		Finished:  m.finished.Load(),
		Closed:    m.closed.Load(),
	}
}

// RecentTasks returns completed task records in newest-first order.
func (m *TaskManager) RecentTasks(limit int) []TaskExecutionRecord {
	return m.history.Recent(limit)
}

// LastTask returns the most recently completed task record.
func (m *TaskManager) LastTask() (TaskExecutionRecord, bool) {
	return m.history.Last()
}
