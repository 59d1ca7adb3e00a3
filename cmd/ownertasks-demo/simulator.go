package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	ownertasks "github.com/ownertask/go-owner-tasks"
	"golang.org/x/time/rate"
)

var errLoadFailed = errors.New("load failed")

// Screen owns the tasks started while it is open.
type Screen struct {
	ID    int
	Title string
}

// simulator opens a screen, starts loads for it at a fixed rate and
// occasionally closes it, either cancelling or forfeiting what is left.
type simulator struct {
	name    string
	manager *ownertasks.TaskManager
	limiter *rate.Limiter
	rng     *rand.Rand

	screens   atomic.Int64
	loaded    atomic.Int64
	cancelled atomic.Int64
	failed    atomic.Int64
}

type simReport struct {
	Screens   int64
	Loaded    int64
	Cancelled int64
	Failed    int64
}

func newSimulator(manager *ownertasks.TaskManager, name string, limiter *rate.Limiter) *simulator {
	return &simulator{
		name:    name,
		manager: manager,
		limiter: limiter,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// run returns nil when ctx ends; only unexpected submission errors stop it early.
func (s *simulator) run(ctx context.Context) error {
	screen := s.open()
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			s.close(screen, false)
			return nil
		}

		if _, err := s.manager.Execute(s.load(), screen); err != nil {
			if errors.Is(err, ownertasks.ErrClosed) {
				return nil
			}
			return fmt.Errorf("%s: %w", s.name, err)
		}

		if s.rng.IntN(10) == 0 {
			s.close(screen, s.rng.IntN(2) == 0)
			screen = s.open()
		}
	}
}

func (s *simulator) open() *Screen {
	id := s.screens.Add(1)
	return &Screen{ID: int(id), Title: fmt.Sprintf("%s/%d", s.name, id)}
}

func (s *simulator) close(screen *Screen, forfeit bool) int {
	if forfeit {
		return s.manager.ForfeitAllFor(screen)
	}
	return s.manager.CancelAllFor(screen)
}

func (s *simulator) load() ownertasks.Runner {
	delay := time.Duration(10+s.rng.IntN(200)) * time.Millisecond
	fail := s.rng.IntN(20) == 0
	return &ownertasks.RunnerFuncs{
		ExecuteFn: func(ctx context.Context, t *ownertasks.Task) (any, error) {
			if t.Await(delay) {
				return nil, context.Cause(ctx)
			}
			if fail {
				return nil, errLoadFailed
			}
			return delay, nil
		},
		OnSuccessFn:   func(any) { s.loaded.Add(1) },
		OnCancelledFn: func() { s.cancelled.Add(1) },
		OnErrorFn:     func(error) { s.failed.Add(1) },
	}
}

func (s *simulator) report() simReport {
	return simReport{
		Screens:   s.screens.Load(),
		Loaded:    s.loaded.Load(),
		Cancelled: s.cancelled.Load(),
		Failed:    s.failed.Load(),
	}
}
