// Package ownertasks runs owner-scoped background tasks on a shared worker pool.
//
// A caller submits a Runner together with an owner: any comparable value,
// typically a pointer to a screen, request or session. The TaskManager indexes
// every live task by its owner so that all tasks of an owner can be cancelled
// or forfeited at once when the owner goes away.
//
// # Quick Start
//
//	manager := ownertasks.NewDefaultTaskManager("ui")
//	defer manager.Shutdown()
//
//	task, err := manager.Execute(&ownertasks.RunnerFuncs{
//		ExecuteFn: func(ctx context.Context, t *ownertasks.Task) (any, error) {
//			return 42, nil
//		},
//		OnSuccessFn: func(result any) {
//			fmt.Println("result:", result)
//		},
//	}, screen)
//
// # Lifecycle
//
// Every task goes NEW -> RUNNING and ends in exactly one of FINISHED, ERROR,
// CANCELLED or FORFEITED. Runners receive exactly one of OnSuccess, OnError or
// OnCancelled, followed by OnFinished. A forfeited task receives nothing.
//
// Cancellation is cooperative: the runner observes it at the checkpoints
// around PreExecute and Execute, through the context passed to them, or by
// blocking in Task.Await, which returns early when the task is cancelled.
//
// # Owners
//
// NewRegistry holds owners strongly. NewWeakRegistry[O] holds *O owners
// through weak pointers: once an owner is unreachable and has no live task,
// it disappears from the registry during the next traversal.
//
// # Pools
//
// CachedThreadPool starts a goroutine per task and has no limit.
// GoroutineThreadPool runs a fixed number of workers over a FIFO queue.
// Both implement Executor.
package ownertasks
