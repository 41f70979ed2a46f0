// Package overdue implements the handoff protocol that lets an
// implicit-barrier-end or implicit-task-end callback arrive on a
// thread, or at a time, different from the one that opened the
// matching region (spec.md §4.3.1). Exactly one of two paths ever
// emits a team's closing events: the normal in-order arrival of both
// callbacks on the owning thread, or a later thread's drain of a
// location it is about to reuse for a new team.
package overdue

import (
	"github.com/behrlich/go-ompt/internal/interfaces"
	"github.com/behrlich/go-ompt/internal/location"
	"github.com/behrlich/go-ompt/internal/region"
)

// Coordinator mediates the per-location task exchange. It holds no
// state of its own beyond its collaborators; all mutable state lives
// on the location.Data blocks and the region.Task/ParallelRegion
// objects passed in.
type Coordinator struct {
	timer     interfaces.Timer
	events    interfaces.EventSink
	threading interfaces.ThreadingSink
	observer  interfaces.Observer
}

// New builds a Coordinator over the given substrate capabilities.
func New(timer interfaces.Timer, events interfaces.EventSink, threading interfaces.ThreadingSink, observer interfaces.Observer) *Coordinator {
	return &Coordinator{timer: timer, events: events, threading: threading, observer: observer}
}

// Drain is the hook implicit-task-begin invokes, before activating
// loc for a new team, to synthesize any exits the previous team's
// ibarrier-end/itask-end have not yet delivered (spec.md §4.3.1 steps
// 1-7).
func (c *Coordinator) Drain(loc interfaces.LocationID, data *location.Data) {
	data.ProtectTaskExchange.Lock()
	t := data.Task()
	if t == nil {
		data.ProtectTaskExchange.Unlock()
		// Another thread is mid-drain (or mid-normal-end) for this
		// location; wait for it to finish so our caller's new
		// team-begin is ordered after it.
		data.PreserveOrder.Lock()
		data.PreserveOrder.Unlock()
		return
	}
	t.InOverdueUse.Store(true)
	data.SetTask(nil)
	data.ProtectTaskExchange.Unlock()

	start := c.timer.Now()
	data.PreserveOrder.Lock()
	c.emitOverdueExits(loc, t)
	data.PreserveOrder.Unlock()
	elapsed := c.timer.Now() - start

	t.InOverdueUse.Store(false)
	if c.observer != nil {
		c.observer.ObserveOverdueDrain()
		c.observer.ObserveLatencyNs("overdue_drain", elapsed)
	}
}

// emitOverdueExits synthesizes the ibarrier-end and itask-end events
// for t on loc, using the primary's published timestamps where
// available and the current clock otherwise (spec.md §4.3.1 steps
// 5-6).
func (c *Coordinator) emitOverdueExits(loc interfaces.LocationID, t *region.Task) {
	r := t.Region

	ibarrierTS := r.TimestampIBarrierEnd.Load()
	if ibarrierTS == 0 {
		ibarrierTS = c.timer.Now()
	}
	c.events.ExitRegionAt(loc, ibarrierTS, r.IBarrierHandle)

	itaskTS := r.TimestampITaskEnd.Load()
	if itaskTS == 0 {
		itaskTS = c.timer.Now()
	}
	c.events.ExitRegionAt(loc, itaskTS, r.Handle)
	c.threading.TeamEnd(t.TPD, itaskTS, t.ThreadIndex, t.TeamSize)
}

// ImplicitBarrierEnd handles an ibarrier-end callback arriving
// normally, on the thread that owns t (spec.md §4.3.1 "Mirror side").
// It returns true if it also emitted t's itask-end (because the
// primary had already published TimestampITaskEnd by the time this
// ran). The caller may still call ImplicitTaskEnd for this task
// afterwards: it finds the location's task slot no longer holding t
// and emits nothing.
func (c *Coordinator) ImplicitBarrierEnd(loc interfaces.LocationID, data *location.Data, t *region.Task, timestamp uint64) bool {
	data.PreserveOrder.Lock()

	data.ProtectTaskExchange.Lock()
	stillOwned := data.Task() == t
	data.ProtectTaskExchange.Unlock()

	if !stillOwned {
		// A concurrent Drain already claimed and emitted this task's
		// exits; our callback arrived too late to matter.
		data.PreserveOrder.Unlock()
		return true
	}

	c.events.ExitRegionAt(loc, timestamp, t.Region.IBarrierHandle)
	t.Region.TimestampIBarrierEnd.CompareAndSwap(0, timestamp)

	itaskTS := t.Region.TimestampITaskEnd.Load()
	if itaskTS == 0 {
		// The real implicit-task-end callback, still outstanding, will
		// finish the job and release PreserveOrder.
		return false
	}

	c.finishNormalEnd(loc, data, t, itaskTS)
	return true
}

// ImplicitTaskEnd handles an itask-end callback arriving normally on
// the thread that owns t. Per spec.md §4.3 "normal" path: emit
// exit(parallel)+team_end and release PreserveOrder. If
// ImplicitBarrierEnd already finished the job for this task (because
// it observed TimestampITaskEnd set), this is a no-op.
func (c *Coordinator) ImplicitTaskEnd(loc interfaces.LocationID, data *location.Data, t *region.Task, timestamp uint64) {
	data.ProtectTaskExchange.Lock()
	stillOwned := data.Task() == t
	data.ProtectTaskExchange.Unlock()
	if !stillOwned {
		// Already drained overdue by another thread.
		return
	}

	t.Region.TimestampITaskEnd.CompareAndSwap(0, timestamp)
	c.finishNormalEnd(loc, data, t, t.Region.TimestampITaskEnd.Load())
}

// finishNormalEnd emits the closing parallel-exit/team_end pair and
// restores this location's task slot to t.Next — the task the runtime
// had resident in the reused task_data slot before t (spec.md §4.3
// step 6) — releasing PreserveOrder. Callers must already hold
// PreserveOrder.
func (c *Coordinator) finishNormalEnd(loc interfaces.LocationID, data *location.Data, t *region.Task, itaskTS uint64) {
	c.events.ExitRegionAt(loc, itaskTS, t.Region.Handle)
	c.threading.TeamEnd(t.TPD, itaskTS, t.ThreadIndex, t.TeamSize)

	data.ProtectTaskExchange.Lock()
	if data.Task() == t {
		data.SetTask(t.Next)
	}
	data.ProtectTaskExchange.Unlock()

	data.PreserveOrder.Unlock()
}
