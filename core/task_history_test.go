package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionHistory_RecentNewestFirst(t *testing.T) {
	h := newExecutionHistory(3)

	_, ok := h.Last()
	assert.False(t, ok)
	assert.Nil(t, h.Recent(0))

	for _, name := range []string{"a", "b", "c", "d"} {
		h.Add(TaskExecutionRecord{Manager: name})
	}

	got := h.Recent(0)
	assert.Len(t, got, 3, "capacity bounds the history")
	assert.Equal(t, "d", got[0].Manager)
	assert.Equal(t, "c", got[1].Manager)
	assert.Equal(t, "b", got[2].Manager)

	assert.Len(t, h.Recent(2), 2)
	assert.Len(t, h.Recent(10), 3)

	last, ok := h.Last()
	assert.True(t, ok)
	assert.Equal(t, "d", last.Manager)
}

func TestExecutionHistory_DefaultCapacity(t *testing.T) {
	h := newExecutionHistory(0)
	assert.Len(t, h.records, defaultTaskHistoryCapacity)
}

// TestExecutionHistory_WrapsExactlyAtCapacity verifies the write cursor wraps without losing order
// Given: A history of capacity 2
// When: Records are added one at a time past the capacity
// Then: Recent always lists the newest records first
func TestExecutionHistory_WrapsExactlyAtCapacity(t *testing.T) {
	h := newExecutionHistory(2)

	h.Add(TaskExecutionRecord{Manager: "a"})
	assert.Equal(t, []string{"a"}, managers(h.Recent(0)))

	h.Add(TaskExecutionRecord{Manager: "b"})
	assert.Equal(t, []string{"b", "a"}, managers(h.Recent(0)))

	h.Add(TaskExecutionRecord{Manager: "c"})
	assert.Equal(t, []string{"c", "b"}, managers(h.Recent(0)))
	assert.Equal(t, []string{"c"}, managers(h.Recent(1)))
}

func managers(records []TaskExecutionRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Manager
	}
	return out
}
