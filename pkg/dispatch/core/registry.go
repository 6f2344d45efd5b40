package core

import (
	"sync/atomic"

	"github.com/jabolina/netdispatch/pkg/dispatch/types"
)

// RegistryCell is a lock-free single-writer-at-a-time, many-reader RCU
// cell around an ActorStore snapshot. Readers lease the current snapshot
// and never block behind a writer; writers clone-mutate-CAS and retry on
// contention.
//
// This is the Go rendering of the original's ArcSwap<ActorStore>: Go
// 1.19 added atomic.Pointer[T], which gives the same lock-free swap
// without an external atomic-pointer library. No repo in this corpus
// imports one (go.uber.org/atomic appears nowhere in the pack), so the
// stdlib type is used directly; see DESIGN.md.
type RegistryCell struct {
	cell atomic.Pointer[ActorStore]
}

// NewRegistryCell returns a cell seeded with an empty store.
func NewRegistryCell() *RegistryCell {
	c := &RegistryCell{}
	c.cell.Store(NewActorStore())
	return c
}

// lease returns the current snapshot for a reader. The returned pointer
// is never mutated in place, so the caller may hold and read from it for
// as long as it wants without synchronising with writers.
func (c *RegistryCell) lease() *ActorStore {
	return c.cell.Load()
}

// Lookup resolves a path against the current snapshot. Total: never
// blocks, never errors.
func (c *RegistryCell) Lookup(path types.ActorPath) (types.ActorRef, bool) {
	return c.lease().GetByActorPath(path)
}

// LookupByID resolves the unique-id secondary index.
func (c *RegistryCell) LookupByID(id types.ActorID) (types.ActorRef, bool) {
	return c.lease().GetByActorID(id)
}

// Contains is a cheap existence probe used by the duplicate-registration
// check before a writer bothers cloning anything.
func (c *RegistryCell) Contains(path types.ActorPath) bool {
	return c.lease().Contains(path)
}

// Register inserts (path, actor) if path is not already present. On
// contention from a concurrent writer, it re-clones from the now-current
// snapshot and retries; this closes the race the spec calls out between
// "clone from old snapshot" and "CAS against new snapshot" by always
// re-validating the duplicate check against the snapshot actually being
// compared-and-swapped against, not the one originally leased.
func (c *RegistryCell) Register(path types.ActorPath, actor types.ActorRef) error {
	for {
		current := c.cell.Load()
		if current.Contains(path) {
			return types.ErrDuplicateEntry
		}
		next := current.inserted(path, actor)
		if c.cell.CompareAndSwap(current, next) {
			return nil
		}
		// Lost the race to another writer; retry against the new current.
	}
}

// Deregister removes path if present. Removing an absent path succeeds
// as a no-op, matching the Reaper's own idempotent sweep semantics.
func (c *RegistryCell) Deregister(path types.ActorPath) error {
	for {
		current := c.cell.Load()
		if !current.Contains(path) {
			return nil
		}
		next := current.removed(path)
		if c.cell.CompareAndSwap(current, next) {
			return nil
		}
	}
}

// Sweep drops every entry whose ActorRef reports itself dead, returning
// how many were reaped. Called from the Reaper's scheduled tick.
func (c *RegistryCell) Sweep() int {
	for {
		current := c.cell.Load()
		next, reaped := current.withoutDead()
		if reaped == 0 {
			return 0
		}
		if c.cell.CompareAndSwap(current, next) {
			return reaped
		}
		// A concurrent register/deregister changed the snapshot underneath
		// us; recompute the dead set against the new current and retry.
	}
}

// Len reports the size of the currently published snapshot.
func (c *RegistryCell) Len() int {
	return c.lease().Len()
}
