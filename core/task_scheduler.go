package core

import (
	"sync"
	"sync/atomic"
)

// WorkScheduler hands queued work to a fixed set of workers.
//
// Shutdown stops intake but lets workers drain what is already queued, so a
// forfeited task still gets to unregister itself.
type WorkScheduler struct {
	queue       *FIFOQueue
	signal      chan struct{}
	closed      chan struct{}
	workerCount int

	metricQueued int32 // Waiting in queue
	metricActive int32 // Executing in Worker

	// Lifecycle
	postMu       sync.RWMutex // Post holds the read side so no push lands after Shutdown
	shuttingDown int32        // atomic flag
}

func NewWorkScheduler(workerCount int) *WorkScheduler {
	return &WorkScheduler{
		queue:       NewFIFOQueue(),
		signal:      make(chan struct{}, workerCount*2),
		closed:      make(chan struct{}),
		workerCount: workerCount,
	}
}

// Post queues w. It returns ErrClosed once Shutdown has been called.
func (s *WorkScheduler) Post(w Work) error {
	s.postMu.RLock()
	defer s.postMu.RUnlock()

	if atomic.LoadInt32(&s.shuttingDown) == 1 {
		return ErrClosed
	}

	s.queue.Push(w)
	atomic.AddInt32(&s.metricQueued, 1) // Metric++

	select {
	case s.signal <- struct{}{}:
	default:
		// Signal channel full, but work is already queued
	}
	return nil
}

// GetWork blocks until work is available. It returns false when stopCh is
// closed, or when the scheduler is shut down and the queue is empty.
func (s *WorkScheduler) GetWork(stopCh <-chan struct{}) (Work, bool) {
	for {
		if w, ok := s.queue.Pop(); ok {
			atomic.AddInt32(&s.metricQueued, -1) // Metric-- (Left Queue)
			return w, true
		}

		select {
		case <-s.signal:
			continue
		case <-s.closed:
			if w, ok := s.queue.Pop(); ok {
				atomic.AddInt32(&s.metricQueued, -1)
				return w, true
			}
			return nil, false
		case <-stopCh:
			return nil, false
		}
	}
}

// Shutdown marks the scheduler as closed. Safe to call more than once.
func (s *WorkScheduler) Shutdown() {
	s.postMu.Lock()
	defer s.postMu.Unlock()

	if atomic.CompareAndSwapInt32(&s.shuttingDown, 0, 1) {
		close(s.closed)
	}
}

func (s *WorkScheduler) IsShutdown() bool {
	return atomic.LoadInt32(&s.shuttingDown) == 1
}

// Metrics
func (s *WorkScheduler) WorkerCount() int     { return s.workerCount }
func (s *WorkScheduler) QueuedTaskCount() int { return int(atomic.LoadInt32(&s.metricQueued)) }
func (s *WorkScheduler) ActiveTaskCount() int { return int(atomic.LoadInt32(&s.metricActive)) }

func (s *WorkScheduler) OnTaskStart() {
	atomic.AddInt32(&s.metricActive, 1)
}

func (s *WorkScheduler) OnTaskEnd() {
	atomic.AddInt32(&s.metricActive, -1)
}
