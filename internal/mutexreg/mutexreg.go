// Package mutexreg is the monotonic wait-id -> mutex-object registry
// (spec.md §4.8) and the per-mutex state (acquisition order, nest
// level, in_release_operation, transient region handles) that the
// dispatcher's lock, nest-lock, critical and ordered steps use
// (spec.md §4.6).
package mutexreg

import (
	"sync"
	"sync/atomic"

	"github.com/behrlich/go-ompt/internal/hashtable"
	"github.com/behrlich/go-ompt/internal/interfaces"
)

// Mutex is the registry's value type: one per distinct (wait_id,
// kind) pair, living forever once created (spec.md §4.8: "Objects are
// never deleted during measurement").
type Mutex struct {
	ID    interfaces.MutexHandle
	Kind  interfaces.MutexKind
	WaitID uint64

	acquisitionOrder atomic.Uint64
	nestLevel        atomic.Int32

	// InReleaseOperation is held across the acquired<->released window
	// to preserve the monotonicity of AcquisitionOrder (spec.md §4.6,
	// §5: "Mutex acquisition_order is monotone per mutex-object,
	// protected across the acquire/release pair by in_release_operation").
	InReleaseOperation sync.Mutex

	// OuterRegion/SblockRegion are the transient region handles used by
	// critical/ordered regions, resolved from the acquiring task's
	// recorded codeptr (spec.md §4.6, §4.8).
	OuterRegion  interfaces.RegionHandle
	SblockRegion interfaces.RegionHandle
}

// NextAcquisitionOrder increments and returns the mutex's
// acquisition-order counter, used on every outermost acquisition:
// mutex_lock, mutex_nest_lock, critical and ordered (spec.md §4.6).
func (m *Mutex) NextAcquisitionOrder() uint64 {
	return m.acquisitionOrder.Add(1)
}

// AcquisitionOrder returns the current counter value without
// advancing it, used for release_lock and for a nested nest-lock
// re-acquisition, neither of which advances the order.
func (m *Mutex) AcquisitionOrder() uint64 {
	return m.acquisitionOrder.Load()
}

// IncrementNestLevel increments the nest level and reports whether
// this acquisition was the outermost one (nest level was zero), which
// governs whether a nest-lock's acquisition_order should advance
// (spec.md §4.6: "nest-lock increments acquisition_order only when
// nest_level was zero, then increments nest_level").
func (m *Mutex) IncrementNestLevel() (wasOutermost bool) {
	return m.nestLevel.Add(1) == 1
}

// DecrementNestLevel decrements the nest level and reports the
// resulting value; zero means the outermost nest-lock hold has just
// been released (spec.md §4.6).
func (m *Mutex) DecrementNestLevel() int32 {
	return m.nestLevel.Add(-1)
}

type key struct {
	waitID uint64
	kind   interfaces.MutexKind
}

// Registry is the process-global wait-id->mutex table. It never
// removes entries during measurement (spec.md §4.8).
type Registry struct {
	table   *hashtable.Table[key, *Mutex]
	nextID  atomic.Uint32
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		table: hashtable.New[key, *Mutex](func(k key) uint64 {
			return hashtable.MixKey(k.waitID, int32(k.kind))
		}),
	}
}

// GetOrCreate resolves the mutex object for (waitID, kind), assigning
// it a fresh monotonic numeric id on first sight (spec.md §4.8:
// "monotonically assigned numeric id (the lock id reported to the
// substrate)").
func (r *Registry) GetOrCreate(waitID uint64, kind interfaces.MutexKind) *Mutex {
	k := key{waitID: waitID, kind: kind}
	return r.table.GetOrCreate(k, func() *Mutex {
		id := r.nextID.Add(1)
		return &Mutex{ID: interfaces.MutexHandle(id), Kind: kind, WaitID: waitID}
	})
}

// Lookup returns the mutex object for (waitID, kind) if one has
// already been created.
func (r *Registry) Lookup(waitID uint64, kind interfaces.MutexKind) (*Mutex, bool) {
	return r.table.Lookup(key{waitID: waitID, kind: kind})
}

// Len reports the number of distinct mutex objects registered.
func (r *Registry) Len() int {
	return r.table.Len()
}
