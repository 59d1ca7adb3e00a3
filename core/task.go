package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Task binds one Runner to one owner and drives it through the TaskState
// machine. A Task runs at most once.
type Task struct {
	id     TaskID
	owner  any
	runner Runner

	state   atomic.Int32 // TaskState
	started atomic.Bool
	token   *cancelToken

	// Written only by the worker goroutine before dispatch.
	result any
	cause  error
	err    *ExecutionError

	registry Registry
	done     chan struct{}
	doneOnce sync.Once

	createdAt  time.Time
	startedAt  atomic.Int64
	finishedAt atomic.Int64
}

// NewTask creates a Task in the NEW state.
// It returns ErrInvalidArgument if runner or owner is absent.
func NewTask(runner Runner, owner any) (*Task, error) {
	if isAbsent(runner) {
		return nil, fmt.Errorf("%w: runner is nil", ErrInvalidArgument)
	}
	if isAbsent(owner) {
		return nil, fmt.Errorf("%w: owner is nil", ErrInvalidArgument)
	}
	return &Task{
		id:        GenerateTaskID(),
		owner:     owner,
		runner:    runner,
		token:     newCancelToken(),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}, nil
}

// ID returns the task identifier.
func (t *Task) ID() TaskID { return t.id }

// Owner returns the owner the task was submitted for.
func (t *Task) Owner() any { return t.owner }

// Runner returns the unit of work.
func (t *Task) Runner() Runner { return t.runner }

// State returns the current lifecycle state.
func (t *Task) State() TaskState { return TaskState(t.state.Load()) }

// IsActive reports whether the task is RUNNING.
func (t *Task) IsActive() bool { return t.State() == StateRunning }

// IsCancelled reports whether the task was cancelled.
func (t *Task) IsCancelled() bool { return t.State() == StateCancelled }

// IsForfeited reports whether the task was forfeited.
func (t *Task) IsForfeited() bool { return t.State() == StateForfeited }

// Err returns the failure captured from PreExecute or Execute, if any.
// It is only meaningful after Done is closed.
func (t *Task) Err() error {
	if t.err == nil {
		return nil
	}
	return t.err
}

// Done is closed once the task has finished running and left its registry.
func (t *Task) Done() <-chan struct{} { return t.done }

// Duration returns how long the task ran, or has been running so far.
func (t *Task) Duration() time.Duration {
	start := t.startedAt.Load()
	if start == 0 {
		return 0
	}
	end := t.finishedAt.Load()
	if end == 0 {
		return time.Since(time.Unix(0, start))
	}
	return time.Duration(end - start)
}

func (t *Task) String() string {
	return fmt.Sprintf("task %s [%s]", t.id.Short(), t.State())
}

// Cancel requests cooperative cancellation. The runner still receives
// OnCancelled and OnFinished. It returns false if the task was already terminal.
//
// The task stays RUNNING while OnSuccess runs, so a Cancel landing inside it
// ends the task CANCELLED even though success was delivered. OnCancelled is
// not called in that case; OnFinished still is.
func (t *Task) Cancel() bool {
	return t.override(StateCancelled, ErrCancelled)
}

// Forfeit abandons the task. No further callback is invoked.
// It returns false if the task was already terminal.
func (t *Task) Forfeit() bool {
	return t.override(StateForfeited, ErrForfeited)
}

// Await blocks the calling runner for up to timeout. It returns true if the
// wait was cut short by Cancel or Forfeit.
func (t *Task) Await(timeout time.Duration) bool {
	return t.token.wait(timeout)
}

// PublishProgress hands progress to the runner's OnProgress, if it has one.
// Nothing is delivered once the task is forfeited.
func (t *Task) PublishProgress(progress any) bool {
	if t.State() == StateForfeited {
		return false
	}
	pr, ok := t.runner.(ProgressRunner)
	if !ok {
		return false
	}
	pr.OnProgress(progress)
	return true
}

func (t *Task) override(to TaskState, cause error) bool {
	for {
		cur := t.State()
		if !canTransition(cur, to) {
			return false
		}
		if t.state.CompareAndSwap(int32(cur), int32(to)) {
			t.token.fire(cause)
			return true
		}
	}
}

func (t *Task) transition(from, to TaskState) bool {
	if !canTransition(from, to) {
		return false
	}
	return t.state.CompareAndSwap(int32(from), int32(to))
}

// Run executes the task on the calling goroutine.
//
// A second call returns ErrIllegalState. A task cancelled or forfeited before
// Run skips PreExecute and Execute but is still dispatched and unregistered.
// Panics from PreExecute or Execute become execution errors; panics from
// callbacks propagate once the task has been unregistered.
func (t *Task) Run(ctx context.Context) error {
	if !t.started.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: task %s already started (state %s)", ErrIllegalState, t.id, t.State())
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t.startedAt.Store(time.Now().UnixNano())
	defer t.detach()

	runCtx, cancel := t.token.derive(ctx)
	defer cancel()

	if t.transition(StateNew, StateRunning) {
		t.execute(runCtx)
	}
	t.dispatch()
	return nil
}

func (t *Task) execute(ctx context.Context) {
	if cause, err := t.guard(PhasePreExecute, func() (any, error) {
		return nil, t.runner.PreExecute(ctx, t)
	}); err != nil {
		t.fail(cause, err)
		return
	}

	// PreExecute may have cancelled or forfeited the task.
	if t.State() != StateRunning {
		return
	}

	result, err := t.guard(PhaseExecute, func() (any, error) {
		return t.runner.Execute(ctx, t)
	})
	if err != nil {
		t.fail(result, err)
		return
	}
	t.result = result
}

// guard runs fn and converts a panic into an ExecutionError. On failure the
// first return value holds the cause to hand to OnError.
func (t *Task) guard(phase Phase, fn func() (any, error)) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			execErr := &ExecutionError{
				TaskID: t.id,
				Phase:  phase,
				Err:    fmt.Errorf("%w: %v\n%s", ErrPanicked, r, debug.Stack()),
				Panic:  r,
			}
			out, err = execErr, execErr
		}
	}()

	out, err = fn()
	if err != nil {
		if _, ok := err.(*ExecutionError); !ok {
			return err, &ExecutionError{TaskID: t.id, Phase: phase, Err: err}
		}
		return err, err
	}
	return out, nil
}

// fail records an execution failure. If the task was cancelled or forfeited
// in the meantime, that outcome wins and the failure is dropped.
func (t *Task) fail(cause any, err error) {
	if !t.transition(StateRunning, StateError) {
		return
	}
	t.cause, _ = cause.(error)
	t.err, _ = err.(*ExecutionError)
}

func (t *Task) dispatch() {
	switch t.State() {
	case StateForfeited:
		return
	case StateRunning:
		t.runner.OnSuccess(t.result)
	case StateCancelled:
		t.runner.OnCancelled()
	case StateError:
		t.runner.OnError(t.cause)
	}

	if t.State() == StateForfeited {
		return
	}
	t.runner.OnFinished()

	// CANCELLED and ERROR are preserved for inspection.
	t.transition(StateRunning, StateFinished)
}

func (t *Task) detach() {
	t.finishedAt.Store(time.Now().UnixNano())
	if t.registry != nil {
		t.registry.Remove(t.owner, t)
	}
	t.doneOnce.Do(func() { close(t.done) })
}
