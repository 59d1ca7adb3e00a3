package core

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrInvalidArgument is returned when an owner, runner or value is absent.
	ErrInvalidArgument = errors.New("ownertasks: invalid argument")

	// ErrIllegalState is returned when a task is started more than once.
	// It indicates caller misuse and is never swallowed.
	ErrIllegalState = errors.New("ownertasks: illegal state")

	// ErrClosed is returned when work is submitted after Shutdown.
	ErrClosed = errors.New("ownertasks: closed")

	// ErrRejected wraps an executor refusal to run a submitted task.
	ErrRejected = errors.New("ownertasks: task rejected")

	// ErrCancelled is the context cause observed by a cancelled task.
	ErrCancelled = errors.New("ownertasks: task cancelled")

	// ErrForfeited is the context cause observed by a forfeited task.
	ErrForfeited = errors.New("ownertasks: task forfeited")

	// ErrPanicked wraps a panic recovered from PreExecute or Execute.
	ErrPanicked = errors.New("ownertasks: run panicked")
)

// Phase names the part of the execution protocol that failed.
type Phase string

const (
	PhasePreExecute Phase = "pre-execute"
	PhaseExecute    Phase = "execute"
)

// ExecutionError is delivered to Runner.OnError when PreExecute or Execute
// fails or panics. It is never returned to the submitter.
type ExecutionError struct {
	TaskID TaskID
	Phase  Phase
	Err    error
	// Panic holds the recovered value when the failure was a panic.
	Panic any
}

func (e *ExecutionError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("task %s: %s panicked: %v", e.TaskID, e.Phase, e.Panic)
	}
	return fmt.Sprintf("task %s: %s failed: %v", e.TaskID, e.Phase, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// isAbsent reports whether v is nil or a typed nil behind an interface.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
