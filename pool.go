package ownertasks

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/ownertask/go-owner-tasks/core"
)

// PoolConfig holds configuration options shared by the worker pools.
type PoolConfig struct {
	// PanicHandler is called when submitted work panics. Defaults to core.DefaultPanicHandler.
	PanicHandler core.PanicHandler
}

func (c *PoolConfig) panicHandler() core.PanicHandler {
	if c == nil || c.PanicHandler == nil {
		return &core.DefaultPanicHandler{}
	}
	return c.PanicHandler
}

// runGuarded executes work and reports a panic instead of crashing the process.
func runGuarded(ctx context.Context, handler core.PanicHandler, poolID string, workerID int, work core.Work) {
	defer func() {
		if r := recover(); r != nil {
			handler.HandlePanic(ctx, poolID, workerID, r, debug.Stack())
		}
	}()
	work(ctx)
}

// =============================================================================
// CachedThreadPool: one goroutine per submitted work item
// =============================================================================

// CachedThreadPool starts a goroutine for every Execute call. It has no
// concurrency limit and no queue, so Execute never blocks.
type CachedThreadPool struct {
	id           string
	panicHandler core.PanicHandler

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	wg      sync.WaitGroup
	active  atomic.Int32
	spawned atomic.Int64
}

var _ core.Executor = (*CachedThreadPool)(nil)

// NewCachedThreadPool creates a CachedThreadPool ready to accept work.
func NewCachedThreadPool(id string) *CachedThreadPool {
	return NewCachedThreadPoolWithConfig(id, nil)
}

// NewCachedThreadPoolWithConfig creates a CachedThreadPool with custom handlers.
func NewCachedThreadPoolWithConfig(id string, config *PoolConfig) *CachedThreadPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &CachedThreadPool{
		id:           id,
		panicHandler: config.panicHandler(),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Execute runs work on a new goroutine. It returns core.ErrClosed after Shutdown.
func (p *CachedThreadPool) Execute(work func(ctx context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return core.ErrClosed
	}

	p.wg.Add(1)
	p.active.Add(1)
	p.spawned.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.active.Add(-1)
		runGuarded(p.ctx, p.panicHandler, p.id, -1, work)
	}()
	return nil
}

// Shutdown stops accepting work. Running work is left to finish.
func (p *CachedThreadPool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Stop shuts the pool down, cancels the context handed to running work and
// waits for it to return.
func (p *CachedThreadPool) Stop() {
	p.Shutdown()
	p.cancel()
	p.Join()
}

// Join waits for all started goroutines to finish.
func (p *CachedThreadPool) Join() {
	p.wg.Wait()
}

// ID returns the ID of the pool
func (p *CachedThreadPool) ID() string {
	return p.id
}

// IsRunning returns whether the pool still accepts work
func (p *CachedThreadPool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

// ActiveTaskCount returns the number of goroutines currently running work
func (p *CachedThreadPool) ActiveTaskCount() int {
	return int(p.active.Load())
}

// SpawnedCount returns how many goroutines the pool has started in total
func (p *CachedThreadPool) SpawnedCount() int64 {
	return p.spawned.Load()
}

// Stats returns current observability data for this pool.
func (p *CachedThreadPool) Stats() core.PoolStats {
	return core.PoolStats{
		ID:      p.id,
		Active:  p.ActiveTaskCount(),
		Running: p.IsRunning(),
	}
}

// =============================================================================
// GoroutineThreadPool: fixed number of workers draining a FIFO queue
// =============================================================================

// GoroutineThreadPool manages a set of worker goroutines
// Responsible for pulling work from the WorkScheduler and executing it
type GoroutineThreadPool struct {
	id           string
	workers      int
	scheduler    *core.WorkScheduler
	panicHandler core.PanicHandler
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	running      bool
	runningMu    sync.RWMutex
}

var _ core.Executor = (*GoroutineThreadPool)(nil)

// NewGoroutineThreadPool creates a new GoroutineThreadPool
func NewGoroutineThreadPool(id string, workers int) *GoroutineThreadPool {
	return NewGoroutineThreadPoolWithConfig(id, workers, nil)
}

// NewGoroutineThreadPoolWithConfig creates a new GoroutineThreadPool with custom handlers.
// Panics if workers is less than 1.
func NewGoroutineThreadPoolWithConfig(id string, workers int, config *PoolConfig) *GoroutineThreadPool {
	if workers < 1 {
		panic("GoroutineThreadPool: workers must be at least 1")
	}
	return &GoroutineThreadPool{
		id:           id,
		workers:      workers,
		scheduler:    core.NewWorkScheduler(workers),
		panicHandler: config.panicHandler(),
	}
}

// Start starts all worker goroutines
func (tg *GoroutineThreadPool) Start(ctx context.Context) {
	tg.runningMu.Lock()
	defer tg.runningMu.Unlock()

	if tg.running {
		return // Already running
	}

	tg.ctx, tg.cancel = context.WithCancel(ctx)
	tg.running = true

	for i := 0; i < tg.workers; i++ {
		tg.wg.Add(1)
		go tg.workerLoop(i, tg.ctx)
	}
}

// Execute queues work. Work queued before Start runs once the pool starts.
// It returns core.ErrClosed after Shutdown.
func (tg *GoroutineThreadPool) Execute(work func(ctx context.Context)) error {
	return tg.scheduler.Post(work)
}

// Shutdown stops accepting work. Workers drain the queue and then exit.
func (tg *GoroutineThreadPool) Shutdown() {
	tg.scheduler.Shutdown()
}

// Stop stops the thread pool without draining the queue
func (tg *GoroutineThreadPool) Stop() {
	tg.scheduler.Shutdown()

	tg.runningMu.Lock()
	if !tg.running {
		tg.runningMu.Unlock()
		return
	}
	tg.runningMu.Unlock()

	if tg.cancel != nil {
		tg.cancel()
	}
	tg.Join()

	tg.runningMu.Lock()
	tg.running = false
	tg.runningMu.Unlock()
}

// ID returns the ID of the thread pool
func (tg *GoroutineThreadPool) ID() string {
	return tg.id
}

// IsRunning returns whether the thread pool is started and still accepts work
func (tg *GoroutineThreadPool) IsRunning() bool {
	tg.runningMu.RLock()
	defer tg.runningMu.RUnlock()
	return tg.running && !tg.scheduler.IsShutdown()
}

// workerLoop is the main loop for each worker
func (tg *GoroutineThreadPool) workerLoop(id int, ctx context.Context) {
	defer tg.wg.Done()
	stopCh := ctx.Done()

	for {
		work, ok := tg.scheduler.GetWork(stopCh)
		if !ok {
			// Scheduler drained after Shutdown, or context canceled
			return
		}

		tg.scheduler.OnTaskStart()
		func() {
			defer tg.scheduler.OnTaskEnd()
			runGuarded(ctx, tg.panicHandler, tg.id, id, work)
		}()
	}
}

// Join waits for all worker goroutines to finish
func (tg *GoroutineThreadPool) Join() {
	tg.wg.Wait()
}

// WorkerCount returns the number of workers
func (tg *GoroutineThreadPool) WorkerCount() int {
	return tg.workers
}

func (tg *GoroutineThreadPool) QueuedTaskCount() int {
	return tg.scheduler.QueuedTaskCount()
}

func (tg *GoroutineThreadPool) ActiveTaskCount() int {
	return tg.scheduler.ActiveTaskCount()
}

// Stats returns current observability data for this pool.
func (tg *GoroutineThreadPool) Stats() core.PoolStats {
	return core.PoolStats{
		ID:      tg.id,
		Workers: tg.workers,
		Queued:  tg.QueuedTaskCount(),
		Active:  tg.ActiveTaskCount(),
		Running: tg.IsRunning(),
	}
}
