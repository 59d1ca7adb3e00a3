package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWorkScheduler_FIFOOrder verifies work is handed out in post order
func TestWorkScheduler_FIFOOrder(t *testing.T) {
	s := NewWorkScheduler(1)
	results := make(chan string, 3)
	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, s.Post(func(ctx context.Context) { results <- name }))
	}
	assert.Equal(t, 3, s.QueuedTaskCount())

	stopCh := make(chan struct{})
	for _, want := range []string{"first", "second", "third"} {
		w, ok := s.GetWork(stopCh)
		require.True(t, ok)
		w(context.Background())
		assert.Equal(t, want, <-results)
	}
	assert.Equal(t, 0, s.QueuedTaskCount())
}

// TestWorkScheduler_ShutdownDrains verifies queued work survives Shutdown
// Given: A scheduler with queued work
// When: Shutdown is called
// Then: New posts fail with ErrClosed but queued work is still handed out
func TestWorkScheduler_ShutdownDrains(t *testing.T) {
	// Arrange
	s := NewWorkScheduler(1)
	ran := 0
	require.NoError(t, s.Post(func(ctx context.Context) { ran++ }))
	require.NoError(t, s.Post(func(ctx context.Context) { ran++ }))

	// Act
	s.Shutdown()
	s.Shutdown()

	// Assert
	assert.True(t, s.IsShutdown())
	assert.ErrorIs(t, s.Post(func(ctx context.Context) {}), ErrClosed)

	stopCh := make(chan struct{})
	for {
		w, ok := s.GetWork(stopCh)
		if !ok {
			break
		}
		w(context.Background())
	}
	assert.Equal(t, 2, ran)
}

// TestWorkScheduler_StopChannel verifies GetWork returns when the worker is stopped
func TestWorkScheduler_StopChannel(t *testing.T) {
	s := NewWorkScheduler(1)
	stopCh := make(chan struct{})

	done := make(chan bool)
	go func() {
		_, ok := s.GetWork(stopCh)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	close(stopCh)

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("GetWork did not return after stop")
	}
}

// TestWorkScheduler_PostRacesShutdown verifies no accepted work is lost
func TestWorkScheduler_PostRacesShutdown(t *testing.T) {
	s := NewWorkScheduler(4)
	var mu sync.Mutex
	accepted, ran := 0, 0

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				err := s.Post(func(ctx context.Context) {
					mu.Lock()
					ran++
					mu.Unlock()
				})
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}
		}()
	}
	time.Sleep(time.Millisecond)
	s.Shutdown()
	wg.Wait()

	stopCh := make(chan struct{})
	for {
		w, ok := s.GetWork(stopCh)
		if !ok {
			break
		}
		w(context.Background())
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, accepted, ran)
}

func TestWorkScheduler_ActiveCounters(t *testing.T) {
	s := NewWorkScheduler(2)
	assert.Equal(t, 2, s.WorkerCount())

	s.OnTaskStart()
	s.OnTaskStart()
	assert.Equal(t, 2, s.ActiveTaskCount())
	s.OnTaskEnd()
	assert.Equal(t, 1, s.ActiveTaskCount())
}
