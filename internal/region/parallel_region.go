package region

import (
	"runtime"
	"sync/atomic"

	"github.com/behrlich/go-ompt/internal/interfaces"
)

// refcountUninitialized is the sentinel stored until the primary
// thread's implicit-task-begin publishes the real team size + 1
// (spec.md §3, §9: "a negative sentinel rather than a separate 'ready'
// flag so one atomic read suffices").
const refcountUninitialized = -1

// ParallelRegion is the adapter's object for one `parallel` construct
// (spec.md §3 data model).
type ParallelRegion struct {
	// ParentTPD is the thread-private handle of the thread that
	// encountered the construct, captured before fork.
	ParentTPD interfaces.ThreadPrivateData

	// Handle is the region resolved from the encountering codeptr;
	// IBarrierHandle is the companion implicit-barrier region resolved
	// from the same codeptr (spec.md §4.2 step 3).
	Handle         Handle
	IBarrierHandle Handle

	// TeamSize is the requested parallelism, corrected down at the
	// primary's implicit-task-begin if the runtime delivers fewer
	// actual members (spec.md §4.3 step 2).
	TeamSize uint32

	// TimestampIBarrierEnd/TimestampITaskEnd are the primary's
	// published end times, read by non-primary members that finish
	// later and by the overdue drain / finalize_tool paths (spec.md
	// §3, §4.3.1).
	TimestampIBarrierEnd atomic.Uint64
	TimestampITaskEnd    atomic.Uint64

	// Refcount starts at refcountUninitialized and is published to
	// TeamSize+1 by the primary's implicit-task-begin; every
	// contributing task end and parallel-end decrements it (spec.md
	// §3, §5).
	Refcount atomic.Int32

	// Layout holds the explicit-task bit-packing parameters computed
	// once the team size is known (spec.md §4.4).
	Layout ExplicitTaskLayout

	// GenerationNumbers is the per-thread-in-team explicit-task
	// generation counter array, length TeamSize. It survives a
	// pool-return (spec.md §4.2 step 3 of parallel-end: "kept, not
	// freed").
	GenerationNumbers []atomic.Uint32

	// UndeferredTask is the single undeferred-task instance shared by
	// every undeferred child created in this region (spec.md §3, §4.4).
	UndeferredTask Task

	// IsLeague marks a region opened under a `teams` construct (spec.md
	// §4.1).
	IsLeague bool

	// freeNext is the global pool's free-list pointer.
	freeNext *ParallelRegion
}

// InitRefcount publishes the region as ready: team member count plus
// one for the encountering task (spec.md §4.3 step 2). Must be called
// exactly once, by the primary (index 0) implicit-task-begin.
func (p *ParallelRegion) InitRefcount(teamSize uint32) {
	p.Refcount.Store(int32(teamSize) + 1)
}

// WaitReady spins while the refcount is still the "not yet
// initialized" sentinel (spec.md §5: "readers of the refcount spin
// while it is negative").
func (p *ParallelRegion) WaitReady() {
	for p.Refcount.Load() < 0 {
		runtime.Gosched()
	}
}

// Release decrements the refcount by one and reports whether it
// reached zero, the signal to return this region to its pool (spec.md
// §3 invariant 1, §4.2 step 3, §4.3 "At team-end").
func (p *ParallelRegion) Release() bool {
	return p.Refcount.Add(-1) == 0
}

// reset clears a region for reuse from the pool. GenerationNumbers is
// resliced down to zero length rather than discarded, so a
// same-or-smaller team reuses the backing array without a fresh
// allocation (spec.md §4.2 step 3).
func (p *ParallelRegion) reset() {
	p.ParentTPD = 0
	p.Handle = 0
	p.IBarrierHandle = 0
	p.TeamSize = 0
	p.TimestampIBarrierEnd.Store(0)
	p.TimestampITaskEnd.Store(0)
	p.Refcount.Store(refcountUninitialized)
	p.Layout = ExplicitTaskLayout{}
	p.GenerationNumbers = p.GenerationNumbers[:0]
	p.UndeferredTask.reset()
	p.IsLeague = false
	p.freeNext = nil
}

// newParallelRegion constructs a region with the sentinel refcount,
// used both by the pool's allocator and directly in tests.
func newParallelRegion() *ParallelRegion {
	p := &ParallelRegion{}
	p.Refcount.Store(refcountUninitialized)
	return p
}

// EnsureGenerationNumbers grows (never shrinks in place) the
// per-thread generation-number array to at least teamSize entries.
func (p *ParallelRegion) EnsureGenerationNumbers(teamSize uint32) {
	n := uint32(len(p.GenerationNumbers))
	if n >= teamSize {
		return
	}
	if uint32(cap(p.GenerationNumbers)) >= teamSize {
		p.GenerationNumbers = p.GenerationNumbers[:teamSize]
		for i := n; i < teamSize; i++ {
			p.GenerationNumbers[i].Store(0)
		}
		return
	}
	grown := make([]atomic.Uint32, teamSize)
	copy(grown, p.GenerationNumbers)
	p.GenerationNumbers = grown
}

// NextGeneration increments and returns the generation-number counter
// for threadNum (spec.md §4.4: "increment
// parallel.task_generation_numbers[thread_num]").
func (p *ParallelRegion) NextGeneration(threadNum uint32) uint32 {
	return p.GenerationNumbers[threadNum].Add(1)
}
