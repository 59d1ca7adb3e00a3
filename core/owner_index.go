package core

import (
	"fmt"
	"slices"
	"sync"
)

// =============================================================================
// OwnerIndex: key -> ordered values, guarded by a single mutex
// =============================================================================

// OwnerIndex maps a key to an ordered list of values. It is safe for
// concurrent use. Every operation holds the lock for its own duration only,
// so callers may re-enter the index from callbacks.
type OwnerIndex[K comparable, V comparable] struct {
	mu      sync.Mutex
	entries map[K][]V
}

// NewOwnerIndex creates an empty OwnerIndex.
func NewOwnerIndex[K comparable, V comparable]() *OwnerIndex[K, V] {
	return &OwnerIndex[K, V]{entries: make(map[K][]V)}
}

// Add appends value to the list of key and returns value.
func (x *OwnerIndex[K, V]) Add(key K, value V) (V, error) {
	if isAbsent(key) || isAbsent(value) {
		var zero V
		return zero, fmt.Errorf("%w: key or value is nil", ErrInvalidArgument)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[key] = append(x.entries[key], value)
	return value, nil
}

// Remove deletes the first occurrence of value from the list of key.
// An emptied list is dropped.
func (x *OwnerIndex[K, V]) Remove(key K, value V) bool {
	if isAbsent(key) || isAbsent(value) {
		return false
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	list, ok := x.entries[key]
	if !ok {
		return false
	}
	i := slices.Index(list, value)
	if i < 0 {
		return false
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(x.entries, key)
	} else {
		x.entries[key] = list
	}
	return true
}

// RemoveAll deletes the whole list of key.
func (x *OwnerIndex[K, V]) RemoveAll(key K) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, key)
}

// Get returns a copy of the list of key. Unknown keys yield an empty slice.
func (x *OwnerIndex[K, V]) Get(key K) []V {
	x.mu.Lock()
	defer x.mu.Unlock()

	list := x.entries[key]
	out := make([]V, len(list))
	copy(out, list)
	return out
}

// Keys returns a snapshot of the current keys.
func (x *OwnerIndex[K, V]) Keys() []K {
	x.mu.Lock()
	defer x.mu.Unlock()

	keys := make([]K, 0, len(x.entries))
	for k := range x.entries {
		keys = append(keys, k)
	}
	return keys
}

// Contains reports whether key has a list.
func (x *OwnerIndex[K, V]) Contains(key K) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.entries[key]
	return ok
}

// Len returns the number of keys.
func (x *OwnerIndex[K, V]) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries)
}

// Clear removes every key.
func (x *OwnerIndex[K, V]) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	clear(x.entries)
}
