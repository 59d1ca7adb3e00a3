package core

import "fmt"

// =============================================================================
// TaskState: lifecycle of a single task
// =============================================================================

// TaskState is the lifecycle state of a Task.
//
//	NEW --run--> RUNNING --ok--> FINISHED
//	               |  \--fail--> ERROR
//	any non-terminal --Cancel--> CANCELLED
//	any non-terminal --Forfeit--> FORFEITED
//
// A task never re-enters RUNNING.
type TaskState int32

const (
	StateNew TaskState = iota
	StateRunning
	StateCancelled
	StateForfeited
	StateError
	StateFinished
)

func (s TaskState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateRunning:
		return "RUNNING"
	case StateCancelled:
		return "CANCELLED"
	case StateForfeited:
		return "FORFEITED"
	case StateError:
		return "ERROR"
	case StateFinished:
		return "FINISHED"
	default:
		return fmt.Sprintf("TaskState(%d)", int32(s))
	}
}

// IsTerminal reports whether no further transition is allowed.
// ERROR counts as terminal: the worker delivers OnError and OnFinished but
// never moves it to FINISHED.
func (s TaskState) IsTerminal() bool {
	switch s {
	case StateCancelled, StateForfeited, StateError, StateFinished:
		return true
	default:
		return false
	}
}

// canTransition encodes the legal edges of the state graph.
func canTransition(from, to TaskState) bool {
	switch to {
	case StateRunning:
		return from == StateNew
	case StateError, StateFinished:
		return from == StateRunning
	case StateCancelled, StateForfeited:
		return !from.IsTerminal()
	default:
		return false
	}
}
