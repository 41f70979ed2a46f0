package region

import (
	"runtime"
	"sync/atomic"

	"github.com/behrlich/go-ompt/internal/interfaces"
)

// Kind classifies a task the way the runtime's flag bits do (spec.md
// §3 data model).
type Kind int

const (
	KindUnknown Kind = iota
	KindInitial
	KindImplicit
	KindExplicit
	KindTarget
	KindUndeferred
)

// Task is the adapter's view of one OpenMP task: the initial task,
// one per implicit-task-begin, one per explicit task, or the single
// undeferred-task instance embedded in each ParallelRegion (spec.md
// §3).
type Task struct {
	Kind Kind

	// Region is the owning parallel region. Nil for the initial task.
	Region *ParallelRegion

	// Location is the CPU location whose implicit-task-begin created
	// this task (spec.md §3: "owning location").
	Location interfaces.LocationID

	// TPD is the substrate's notion of "thread" for this task, as
	// returned by ThreadingSink.TeamBegin.
	TPD interfaces.ThreadPrivateData

	// SyncRegions and WorkshareRegions are the per-task region stacks
	// (spec.md §4.5).
	SyncRegions      Stack
	WorkshareRegions Stack

	// LastSectionHandle tracks the region handle of the most recently
	// dispatched `omp sections` section (spec.md §4.5).
	LastSectionHandle Handle

	// MutexAcquireTimestamp/MutexAcquireCodeptr are captured at
	// mutex-acquire and consumed at mutex-acquired: for critical/ordered
	// regions, to resolve the outer/sblock handles; for test_lock/
	// test_nest_lock, to resolve and time the test-lock region (spec.md
	// §3, §4.6).
	MutexAcquireTimestamp uint64
	MutexAcquireCodeptr   uintptr

	// LockSetRegion is the lock-set region entered at mutex-acquire for
	// mutex_lock/mutex_nest_lock, exited again at mutex-acquired using
	// the same handle rather than re-resolving it (spec.md §4.6).
	LockSetRegion Handle

	// TeamSize/ThreadIndex are populated for implicit tasks.
	TeamSize    uint32
	ThreadIndex uint32

	// InOverdueUse gates pool-return while the overdue coordinator is
	// synthesizing this task's missing exits (spec.md §4.3.1).
	InOverdueUse atomic.Bool

	// Explicit-task fields.
	TaskRegion   Handle                // the task construct's own region (spec.md §4.4)
	ScorepTask   interfaces.TaskHandle // opaque substrate-task handle, valid after task_begin
	IsUndeferred bool

	// IsLeague marks a task rooted in an OpenMP league (teams)
	// construct; its child events are suppressed per spec.md §1's
	// non-goal on league accounting.
	IsLeague bool

	// Next chains a previously-resident task when the runtime reuses
	// a task_data slot for a single-thread team (spec.md §4.3 step 6,
	// §9 open question): the prior task is stashed here and restored
	// at implicit-task-end.
	Next *Task

	// freeNext is the pool free-list pointer (spec.md §3), distinct
	// from Next which carries runtime-visible chaining semantics.
	freeNext *Task
}

// WaitOverdueDone spins until the overdue coordinator has finished
// synthesizing this task's missing exits, mirroring
// ParallelRegion.WaitReady's spin pattern. Callers must call this
// before returning t to its pool (spec.md §4.3/§5: "the task is not
// returned until its in_overdue_use flag ... has been observed
// false").
func (t *Task) WaitOverdueDone() {
	for t.InOverdueUse.Load() {
		runtime.Gosched()
	}
}

// reset clears a task for reuse from the pool. The region stacks keep
// their backing arrays (only their length is reset) to avoid
// reallocating on every task-reuse, matching the teacher's
// pre-allocated per-tag arrays in queue.Runner.
func (t *Task) reset() {
	t.Kind = KindUnknown
	t.Region = nil
	t.Location = 0
	t.TPD = 0
	t.SyncRegions.Reset()
	t.WorkshareRegions.Reset()
	t.LastSectionHandle = 0
	t.MutexAcquireTimestamp = 0
	t.MutexAcquireCodeptr = 0
	t.LockSetRegion = 0
	t.TeamSize = 0
	t.ThreadIndex = 0
	t.InOverdueUse.Store(false)
	t.TaskRegion = 0
	t.ScorepTask = 0
	t.IsUndeferred = false
	t.IsLeague = false
	t.Next = nil
	t.freeNext = nil
}
