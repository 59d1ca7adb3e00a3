package core

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectUntil runs the garbage collector until cond holds or the deadline passes.
func collectUntil(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		runtime.GC()
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// TestWeakOwnerIndex_BasicOperations verifies the OwnerIndex contract over weak keys
func TestWeakOwnerIndex_BasicOperations(t *testing.T) {
	idx := NewWeakOwnerIndex[screen, int]()
	a := &screen{name: "a"}
	b := &screen{name: "b"}

	for _, v := range []int{1, 2, 3} {
		_, err := idx.Add(a, v)
		require.NoError(t, err)
	}
	_, err := idx.Add(b, 10)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, idx.Get(a))
	assert.Equal(t, []int{10}, idx.Get(b))
	assert.Equal(t, 2, idx.Len())
	assert.ElementsMatch(t, []*screen{a, b}, idx.Keys())

	assert.True(t, idx.Remove(a, 2))
	assert.Equal(t, []int{1, 3}, idx.Get(a))

	idx.RemoveAll(a)
	assert.False(t, idx.Contains(a))
	assert.Empty(t, idx.Get(a))

	assert.True(t, idx.Remove(b, 10))
	assert.False(t, idx.Contains(b), "emptied entry should be dropped")

	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}

// TestWeakOwnerIndex_DistinctOwnersWithEqualFields verifies identity, not value equality
func TestWeakOwnerIndex_DistinctOwnersWithEqualFields(t *testing.T) {
	idx := NewWeakOwnerIndex[screen, int]()
	a1 := &screen{name: "same"}
	a2 := &screen{name: "same"}

	_, _ = idx.Add(a1, 1)
	_, _ = idx.Add(a2, 2)

	assert.Equal(t, []int{1}, idx.Get(a1))
	assert.Equal(t, []int{2}, idx.Get(a2))
	assert.Equal(t, 2, idx.Len())

	runtime.KeepAlive(a1)
	runtime.KeepAlive(a2)
}

// TestWeakOwnerIndex_RejectsAbsent verifies nil owners and values are refused
func TestWeakOwnerIndex_RejectsAbsent(t *testing.T) {
	idx := NewWeakOwnerIndex[screen, *screen]()
	s := &screen{}

	_, err := idx.Add(nil, s)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = idx.Add(s, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.False(t, idx.Remove(nil, s))
}

// TestWeakOwnerIndex_EvictsCollectedOwner verifies weak keys do not pin owners
// Given: An owner whose only strong reference is dropped after Add
// When: The garbage collector runs and the index is traversed
// Then: The entry is evicted and Keys no longer reports it
func TestWeakOwnerIndex_EvictsCollectedOwner(t *testing.T) {
	// Arrange
	idx := NewWeakOwnerIndex[screen, int]()
	keep := &screen{name: "kept"}
	_, _ = idx.Add(keep, 1)

	func() {
		dropped := &screen{name: "dropped"}
		_, _ = idx.Add(dropped, 2)
	}()

	// Act
	ok := collectUntil(t, func() bool { return idx.Len() == 1 })

	// Assert
	require.True(t, ok, "collected owner should be evicted")
	assert.Equal(t, []*screen{keep}, idx.Keys())
	assert.GreaterOrEqual(t, idx.Evicted(), uint64(1))
	assert.Equal(t, []int{1}, idx.Get(keep))

	runtime.KeepAlive(keep)
}

// TestWeakOwnerIndex_Reap verifies explicit reaping reports dropped entries
func TestWeakOwnerIndex_Reap(t *testing.T) {
	idx := NewWeakOwnerIndex[screen, int]()
	for i := range 3 {
		func() {
			s := &screen{}
			_, _ = idx.Add(s, i)
		}()
	}

	reaped := 0
	ok := collectUntil(t, func() bool {
		reaped += idx.Reap()
		return reaped == 3
	})

	require.True(t, ok, "reaped = %d, want 3", reaped)
	assert.Equal(t, 0, idx.Len())
}

// TestWeakOwnerIndex_Clear verifies Clear drops every entry
func TestWeakOwnerIndex_Clear(t *testing.T) {
	idx := NewWeakOwnerIndex[screen, int]()
	a := &screen{}
	_, _ = idx.Add(a, 1)

	idx.Clear()

	assert.Equal(t, 0, idx.Len())
	assert.False(t, idx.Contains(a))
	runtime.KeepAlive(a)
}

// TestWeakOwnerIndex_IdentityTokens verifies each entry gets its own token and removal drops only that entry
// Given: Two owners, one of which is emptied and then added again
// When: Its last value is removed and a new value is added
// Then: The other owner's entry is untouched and the re-added owner gets a fresh token
func TestWeakOwnerIndex_IdentityTokens(t *testing.T) {
	// Arrange
	idx := NewWeakOwnerIndex[screen, int]()
	a := &screen{name: "a"}
	b := &screen{name: "b"}
	_, _ = idx.Add(a, 1)
	_, _ = idx.Add(b, 2)
	require.Len(t, idx.entries, 2)
	firstA := idx.entries[0].ref.id
	require.NotEqual(t, firstA, idx.entries[1].ref.id)

	// Act
	require.True(t, idx.Remove(a, 1))
	_, _ = idx.Add(a, 3)

	// Assert
	assert.Equal(t, []int{2}, idx.Get(b))
	assert.Equal(t, []int{3}, idx.Get(a))
	require.Len(t, idx.entries, 2)
	assert.NotEqual(t, firstA, idx.entries[1].ref.id, "re-added owner must get a new token")

	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}
