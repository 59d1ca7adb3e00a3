package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// goExecutor runs each work item on its own goroutine and swallows panics.
type goExecutor struct {
	mu       sync.Mutex
	closed   bool
	wg       sync.WaitGroup
	panicsMu sync.Mutex
	panics   []any
}

func (e *goExecutor) Execute(work func(ctx context.Context)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.panicsMu.Lock()
				e.panics = append(e.panics, r)
				e.panicsMu.Unlock()
			}
		}()
		work(context.Background())
	}()
	return nil
}

func (e *goExecutor) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

func (e *goExecutor) recovered() []any {
	e.panicsMu.Lock()
	defer e.panicsMu.Unlock()
	return append([]any(nil), e.panics...)
}

// heldExecutor queues work until release is called.
type heldExecutor struct {
	mu    sync.Mutex
	queue []func(ctx context.Context)
}

func (e *heldExecutor) Execute(work func(ctx context.Context)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = append(e.queue, work)
	return nil
}

func (e *heldExecutor) Shutdown() {}

func (e *heldExecutor) release() {
	e.mu.Lock()
	queue := e.queue
	e.queue = nil
	e.mu.Unlock()
	for _, w := range queue {
		w(context.Background())
	}
}

// refusingExecutor rejects every submission.
type refusingExecutor struct{}

func (refusingExecutor) Execute(func(ctx context.Context)) error { return ErrClosed }
func (refusingExecutor) Shutdown()                               {}

// callLog records runner callbacks in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// recordingRunner logs every callback and delegates Execute to fn.
func recordingRunner(log *callLog, fn func(ctx context.Context, t *Task) (any, error)) *RunnerFuncs {
	return &RunnerFuncs{
		PreExecuteFn: func(ctx context.Context, t *Task) error {
			log.add("pre")
			return nil
		},
		ExecuteFn: func(ctx context.Context, t *Task) (any, error) {
			log.add("execute")
			if fn == nil {
				return nil, nil
			}
			return fn(ctx, t)
		},
		OnSuccessFn:   func(result any) { log.add("success") },
		OnCancelledFn: func() { log.add("cancelled") },
		OnErrorFn:     func(err error) { log.add("error") },
		OnFinishedFn:  func() { log.add("finished") },
	}
}

func waitDone(t *testing.T, task *Task, timeout time.Duration) {
	t.Helper()
	select {
	case <-task.Done():
	case <-time.After(timeout):
		t.Fatalf("task %s did not finish within %v", task, timeout)
	}
}
