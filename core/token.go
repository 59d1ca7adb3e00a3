package core

import (
	"context"
	"sync"
	"time"
)

// cancelToken is fired once by Cancel or Forfeit. Firing wakes every Await
// caller and cancels the task context with the matching cause.
type cancelToken struct {
	once   sync.Once
	fired  chan struct{}
	ctx    context.Context
	cancel context.CancelCauseFunc
}

func newCancelToken() *cancelToken {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &cancelToken{
		fired:  make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// fire is safe to call from any goroutine, any number of times.
func (c *cancelToken) fire(cause error) {
	c.once.Do(func() {
		close(c.fired)
		c.cancel(cause)
	})
}

// wait blocks until timeout elapses or the token fires.
// It returns true when woken by the token.
func (c *cancelToken) wait(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-c.fired:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.fired:
		return true
	case <-timer.C:
		return false
	}
}

// derive merges the parent context with the token so that Execute observes
// both worker shutdown and task cancellation.
func (c *cancelToken) derive(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	stop := context.AfterFunc(c.ctx, func() {
		cancel(context.Cause(c.ctx))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
