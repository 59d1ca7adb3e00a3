package core

import "sync"

const defaultTaskHistoryCapacity = 100

// executionHistory keeps the last records a manager finished, overwriting
// the oldest once full.
type executionHistory struct {
	mu      sync.Mutex
	records []TaskExecutionRecord
	next    int // slot the next record is written to
	full    bool
}

func newExecutionHistory(capacity int) *executionHistory {
	if capacity < 1 {
		capacity = defaultTaskHistoryCapacity
	}
	return &executionHistory{records: make([]TaskExecutionRecord, capacity)}
}

func (h *executionHistory) Add(record TaskExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records[h.next] = record
	h.next++
	if h.next == len(h.records) {
		h.next = 0
		h.full = true
	}
}

// Recent returns up to limit records, newest first. limit <= 0 means all.
func (h *executionHistory) Recent(limit int) []TaskExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.newestLocked(limit)
}

func (h *executionHistory) Last() (TaskExecutionRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	last := h.newestLocked(1)
	if len(last) == 0 {
		return TaskExecutionRecord{}, false
	}
	return last[0], true
}

func (h *executionHistory) newestLocked(limit int) []TaskExecutionRecord {
	size := h.next
	if h.full {
		size = len(h.records)
	}
	if size == 0 {
		return nil
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]TaskExecutionRecord, 0, limit)
	i := h.next
	for len(out) < limit {
		if i == 0 {
			i = len(h.records)
		}
		i--
		out = append(out, h.records[i])
	}
	return out
}
