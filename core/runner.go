package core

import "context"

// =============================================================================
// Runner: the unit of work and its callback extension points
// =============================================================================

// Runner is the unit of work executed by a Task.
//
// PreExecute and Execute run on the worker goroutine. PreExecute may cancel or
// forfeit its own task; Execute only runs if the task is still RUNNING
// afterwards. Exactly one of OnSuccess, OnCancelled or OnError is invoked,
// followed by OnFinished, unless the task was forfeited, in which case none
// of them is.
type Runner interface {
	PreExecute(ctx context.Context, t *Task) error
	Execute(ctx context.Context, t *Task) (any, error)
	OnSuccess(result any)
	OnCancelled()
	OnError(err error)
	OnFinished()
}

// ProgressRunner is implemented by runners that want intermediate results
// published through Task.PublishProgress.
type ProgressRunner interface {
	OnProgress(progress any)
}

// BaseRunner provides no-op callbacks. Embed it and implement Execute.
type BaseRunner struct{}

func (BaseRunner) PreExecute(context.Context, *Task) error { return nil }
func (BaseRunner) OnSuccess(any)                           {}
func (BaseRunner) OnCancelled()                            {}
func (BaseRunner) OnError(error)                           {}
func (BaseRunner) OnFinished()                             {}

// RunnerFuncs adapts plain functions to Runner. Nil fields are no-ops.
type RunnerFuncs struct {
	PreExecuteFn  func(ctx context.Context, t *Task) error
	ExecuteFn     func(ctx context.Context, t *Task) (any, error)
	OnSuccessFn   func(result any)
	OnCancelledFn func()
	OnErrorFn     func(err error)
	OnFinishedFn  func()
	OnProgressFn  func(progress any)
}

var (
	_ Runner         = (*RunnerFuncs)(nil)
	_ ProgressRunner = (*RunnerFuncs)(nil)
)

func (r *RunnerFuncs) PreExecute(ctx context.Context, t *Task) error {
	if r.PreExecuteFn == nil {
		return nil
	}
	return r.PreExecuteFn(ctx, t)
}

func (r *RunnerFuncs) Execute(ctx context.Context, t *Task) (any, error) {
	if r.ExecuteFn == nil {
		return nil, nil
	}
	return r.ExecuteFn(ctx, t)
}

func (r *RunnerFuncs) OnSuccess(result any) {
	if r.OnSuccessFn != nil {
		r.OnSuccessFn(result)
	}
}

func (r *RunnerFuncs) OnCancelled() {
	if r.OnCancelledFn != nil {
		r.OnCancelledFn()
	}
}

func (r *RunnerFuncs) OnError(err error) {
	if r.OnErrorFn != nil {
		r.OnErrorFn(err)
	}
}

func (r *RunnerFuncs) OnFinished() {
	if r.OnFinishedFn != nil {
		r.OnFinishedFn()
	}
}

func (r *RunnerFuncs) OnProgress(progress any) {
	if r.OnProgressFn != nil {
		r.OnProgressFn(progress)
	}
}

// =============================================================================
// TypedRunner: input/output typed adapter
// =============================================================================

// TypedRunner binds an input value to a typed execute function.
// Success results are delivered to OnResult with their static type.
type TypedRunner[In, Out any] struct {
	BaseRunner

	Input    In
	Run      func(ctx context.Context, t *Task, in In) (Out, error)
	OnResult func(out Out)
	OnFail   func(err error)
	OnCancel func()
	OnDone   func()
}

// NewTypedRunner creates a TypedRunner for run applied to in.
func NewTypedRunner[In, Out any](in In, run func(ctx context.Context, t *Task, in In) (Out, error)) *TypedRunner[In, Out] {
	return &TypedRunner[In, Out]{Input: in, Run: run}
}

func (r *TypedRunner[In, Out]) Execute(ctx context.Context, t *Task) (any, error) {
	if r.Run == nil {
		var zero Out
		return zero, nil
	}
	return r.Run(ctx, t, r.Input)
}

func (r *TypedRunner[In, Out]) OnSuccess(result any) {
	if r.OnResult == nil {
		return
	}
	out, _ := result.(Out)
	r.OnResult(out)
}

func (r *TypedRunner[In, Out]) OnError(err error) {
	if r.OnFail != nil {
		r.OnFail(err)
	}
}

func (r *TypedRunner[In, Out]) OnCancelled() {
	if r.OnCancel != nil {
		r.OnCancel()
	}
}

func (r *TypedRunner[In, Out]) OnFinished() {
	if r.OnDone != nil {
		r.OnDone()
	}
}
