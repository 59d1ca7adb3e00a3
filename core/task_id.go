package core

import "github.com/google/uuid"

// TaskID uniquely identifies a submitted task.
type TaskID uuid.UUID

// GenerateTaskID returns a new random TaskID.
func GenerateTaskID() TaskID {
	return TaskID(uuid.New())
}

// IsZero reports whether the id was never assigned.
func (id TaskID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id TaskID) String() string {
	return uuid.UUID(id).String()
}

// Short returns the first eight characters, for log lines.
func (id TaskID) Short() string {
	return id.String()[:8]
}
