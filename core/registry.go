package core

import (
	"fmt"
	"reflect"
)

// Registry tracks the live tasks of every owner.
type Registry interface {
	Add(owner any, t *Task) error
	Remove(owner any, t *Task) bool
	RemoveAll(owner any)
	Get(owner any) []*Task
	Owners() []any
	Clear()
}

// =============================================================================
// Strong registry
// =============================================================================

type strongRegistry struct {
	index *OwnerIndex[any, *Task]
}

// NewRegistry returns a Registry that holds owners strongly. Owners must be
// comparable values, typically pointers.
func NewRegistry() Registry {
	return &strongRegistry{index: NewOwnerIndex[any, *Task]()}
}

func (r *strongRegistry) Add(owner any, t *Task) error {
	if !isAbsent(owner) && !hashable(owner) {
		return fmt.Errorf("%w: owner of type %T is not comparable", ErrInvalidArgument, owner)
	}
	_, err := r.index.Add(owner, t)
	return err
}

func (r *strongRegistry) Remove(owner any, t *Task) bool {
	if !comparableOwner(owner) {
		return false
	}
	return r.index.Remove(owner, t)
}

func (r *strongRegistry) RemoveAll(owner any) {
	if comparableOwner(owner) {
		r.index.RemoveAll(owner)
	}
}

func (r *strongRegistry) Get(owner any) []*Task {
	if !comparableOwner(owner) {
		return []*Task{}
	}
	return r.index.Get(owner)
}

func (r *strongRegistry) Owners() []any { return r.index.Keys() }

func (r *strongRegistry) Clear() { r.index.Clear() }

func comparableOwner(owner any) bool {
	return !isAbsent(owner) && hashable(owner)
}

// hashable reports whether owner can be a map key. A comparable type is not
// enough: an interface field holding a slice still panics when hashed.
func hashable(owner any) (ok bool) {
	if !reflect.TypeOf(owner).Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	m := map[any]struct{}{owner: {}}
	return len(m) == 1
}

// =============================================================================
// Weak registry
// =============================================================================

type weakRegistry[O any] struct {
	index *WeakOwnerIndex[O, *Task]
}

// NewWeakRegistry returns a Registry whose owners are *O held weakly, so an
// owner dropped by the rest of the program is forgotten once its tasks are
// gone. Owners of any other type are rejected with ErrInvalidArgument.
func NewWeakRegistry[O any]() Registry {
	return &weakRegistry[O]{index: NewWeakOwnerIndex[O, *Task]()}
}

func (r *weakRegistry[O]) Add(owner any, t *Task) error {
	p, ok := owner.(*O)
	if !ok {
		var want *O
		return fmt.Errorf("%w: owner must be %T, got %T", ErrInvalidArgument, want, owner)
	}
	_, err := r.index.Add(p, t)
	return err
}

func (r *weakRegistry[O]) Remove(owner any, t *Task) bool {
	p, ok := owner.(*O)
	if !ok {
		return false
	}
	return r.index.Remove(p, t)
}

func (r *weakRegistry[O]) RemoveAll(owner any) {
	if p, ok := owner.(*O); ok {
		r.index.RemoveAll(p)
	}
}

func (r *weakRegistry[O]) Get(owner any) []*Task {
	p, ok := owner.(*O)
	if !ok {
		return []*Task{}
	}
	return r.index.Get(p)
}

func (r *weakRegistry[O]) Owners() []any {
	keys := r.index.Keys()
	owners := make([]any, len(keys))
	for i, k := range keys {
		owners[i] = k
	}
	return owners
}

func (r *weakRegistry[O]) Clear() { r.index.Clear() }
