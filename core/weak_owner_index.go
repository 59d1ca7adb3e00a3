package core

import (
	"fmt"
	"slices"
	"sync"
	"weak"
)

// ownerRef is a liveness-checked key: an identity token plus a weak pointer
// used as the liveness probe. It never keeps the owner reachable.
type ownerRef[O any] struct {
	id  uint64
	ptr weak.Pointer[O]
}

func (r ownerRef[O]) get() *O { return r.ptr.Value() }

type weakEntry[O any, V comparable] struct {
	ref    ownerRef[O]
	values []V
}

// WeakOwnerIndex has the contract of OwnerIndex but holds its keys weakly.
//
// Keys cannot be hashed by owner once wrapped, so every lookup scans the
// entries, comparing each live referent with the requested owner. Entries
// whose owner has been collected are evicted during that scan; there is no
// background sweeper.
type WeakOwnerIndex[O any, V comparable] struct {
	mu      sync.Mutex
	entries []*weakEntry[O, V]
	nextID  uint64
	evicted uint64
}

// NewWeakOwnerIndex creates an empty WeakOwnerIndex.
func NewWeakOwnerIndex[O any, V comparable]() *WeakOwnerIndex[O, V] {
	return &WeakOwnerIndex[O, V]{}
}

// scanLocked drops dead entries and returns the entry of owner, if any.
// owner may be nil to only reap.
func (x *WeakOwnerIndex[O, V]) scanLocked(owner *O) *weakEntry[O, V] {
	var found *weakEntry[O, V]
	live := x.entries[:0]
	for _, e := range x.entries {
		p := e.ref.get()
		if p == nil {
			x.evicted++
			continue
		}
		live = append(live, e)
		if found == nil && owner != nil && p == owner {
			found = e
		}
	}
	clear(x.entries[len(live):])
	x.entries = live
	return found
}

// dropLocked removes the entry carrying e's identity token.
func (x *WeakOwnerIndex[O, V]) dropLocked(e *weakEntry[O, V]) {
	x.entries = slices.DeleteFunc(x.entries, func(other *weakEntry[O, V]) bool {
		return other.ref.id == e.ref.id
	})
}

// Add appends value to the list of owner and returns value.
func (x *WeakOwnerIndex[O, V]) Add(owner *O, value V) (V, error) {
	if owner == nil || isAbsent(value) {
		var zero V
		return zero, fmt.Errorf("%w: owner or value is nil", ErrInvalidArgument)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	e := x.scanLocked(owner)
	if e == nil {
		x.nextID++
		e = &weakEntry[O, V]{ref: ownerRef[O]{id: x.nextID, ptr: weak.Make(owner)}}
		x.entries = append(x.entries, e)
	}
	e.values = append(e.values, value)
	return value, nil
}

// Remove deletes the first occurrence of value from the list of owner.
func (x *WeakOwnerIndex[O, V]) Remove(owner *O, value V) bool {
	if owner == nil || isAbsent(value) {
		return false
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	e := x.scanLocked(owner)
	if e == nil {
		return false
	}
	i := slices.Index(e.values, value)
	if i < 0 {
		return false
	}
	e.values = slices.Delete(e.values, i, i+1)
	if len(e.values) == 0 {
		x.dropLocked(e)
	}
	return true
}

// RemoveAll deletes the whole list of owner.
func (x *WeakOwnerIndex[O, V]) RemoveAll(owner *O) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if e := x.scanLocked(owner); e != nil {
		x.dropLocked(e)
	}
}

// Get returns a copy of the list of owner.
func (x *WeakOwnerIndex[O, V]) Get(owner *O) []V {
	x.mu.Lock()
	defer x.mu.Unlock()

	e := x.scanLocked(owner)
	if e == nil {
		return []V{}
	}
	out := make([]V, len(e.values))
	copy(out, e.values)
	return out
}

// Keys returns the owners that are still alive, reaping the others.
func (x *WeakOwnerIndex[O, V]) Keys() []*O {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.scanLocked(nil)
	keys := make([]*O, 0, len(x.entries))
	for _, e := range x.entries {
		if p := e.ref.get(); p != nil {
			keys = append(keys, p)
		}
	}
	return keys
}

// Contains reports whether owner has a list.
func (x *WeakOwnerIndex[O, V]) Contains(owner *O) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.scanLocked(owner) != nil
}

// Len returns the number of live owners.
func (x *WeakOwnerIndex[O, V]) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.scanLocked(nil)
	return len(x.entries)
}

// Reap evicts entries of collected owners and returns how many were dropped.
func (x *WeakOwnerIndex[O, V]) Reap() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	before := len(x.entries)
	x.scanLocked(nil)
	return before - len(x.entries)
}

// Evicted returns the total number of entries reaped so far.
func (x *WeakOwnerIndex[O, V]) Evicted() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.evicted
}

// Clear removes every entry.
func (x *WeakOwnerIndex[O, V]) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	clear(x.entries)
	x.entries = nil
}
