package core

import "github.com/jabolina/netdispatch/pkg/dispatch/types"

// ActorStore is an immutable snapshot mapping ActorPaths to ActorRefs,
// with a secondary index from ActorID to ActorRef for the Unique variant.
// Snapshots are never mutated after publication; every writer builds a
// new one.
//
// Persistent maps (structural sharing between snapshots) would reduce
// clone cost, but the spec explicitly does not require them, and no
// example repo in this codebase's ancestry imports a persistent-map
// library, so ActorStore clones its two plain maps on every update. See
// DESIGN.md for the full justification.
type ActorStore struct {
	byPath map[string]types.ActorRef
	byID   map[types.ActorID]types.ActorRef
}

// NewActorStore returns an empty snapshot.
func NewActorStore() *ActorStore {
	return &ActorStore{
		byPath: make(map[string]types.ActorRef),
		byID:   make(map[types.ActorID]types.ActorRef),
	}
}

func pathKey(path types.ActorPath) string {
	return path.String()
}

// Contains is a total read operation: never fails, never blocks.
func (s *ActorStore) Contains(path types.ActorPath) bool {
	_, ok := s.byPath[pathKey(path)]
	return ok
}

// GetByActorPath is a total read operation returning the registered
// reference, if any.
func (s *ActorStore) GetByActorPath(path types.ActorPath) (types.ActorRef, bool) {
	ref, ok := s.byPath[pathKey(path)]
	return ref, ok
}

// GetByActorID looks up the secondary unique-id index.
func (s *ActorStore) GetByActorID(id types.ActorID) (types.ActorRef, bool) {
	ref, ok := s.byID[id]
	return ref, ok
}

// clone produces a structurally independent copy for a writer to mutate
// before publishing.
func (s *ActorStore) clone() *ActorStore {
	next := &ActorStore{
		byPath: make(map[string]types.ActorRef, len(s.byPath)),
		byID:   make(map[types.ActorID]types.ActorRef, len(s.byID)),
	}
	for k, v := range s.byPath {
		next.byPath[k] = v
	}
	for k, v := range s.byID {
		next.byID[k] = v
	}
	return next
}

// inserted returns a new snapshot with (path, actor) added. The caller is
// responsible for the duplicate check; insert itself is unconditional.
func (s *ActorStore) inserted(path types.ActorPath, actor types.ActorRef) *ActorStore {
	next := s.clone()
	next.byPath[pathKey(path)] = actor
	if path.Kind == types.UniquePathKind {
		next.byID[path.ID] = actor
	}
	return next
}

// removed returns a new snapshot with path absent. Removing an absent
// path is a no-op clone, not an error.
func (s *ActorStore) removed(path types.ActorPath) *ActorStore {
	next := s.clone()
	delete(next.byPath, pathKey(path))
	if path.Kind == types.UniquePathKind {
		delete(next.byID, path.ID)
	}
	return next
}

// withoutDead returns a new snapshot containing only the entries whose
// ActorRef reports alive, plus the count removed. Used by the Reaper.
func (s *ActorStore) withoutDead() (*ActorStore, int) {
	next := NewActorStore()
	reaped := 0
	for k, v := range s.byPath {
		if v.Dead() {
			reaped++
			continue
		}
		next.byPath[k] = v
	}
	for k, v := range s.byID {
		if v.Dead() {
			continue
		}
		next.byID[k] = v
	}
	return next, reaped
}

// Len reports how many paths are currently registered.
func (s *ActorStore) Len() int {
	return len(s.byPath)
}
