package dispatch

import (
	"github.com/behrlich/go-ompt/internal/interfaces"
	"github.com/behrlich/go-ompt/internal/region"
)

// ParallelBegin implements spec.md §4.2 parallel-begin.
func (d *Dispatcher) ParallelBegin(ts *ThreadState, loc interfaces.LocationID, encountering *region.Task, requestedParallelism uint32, isLeague bool, codeptr uintptr) (*region.ParallelRegion, error) {
	if !d.active() {
		return nil, nil
	}
	if encountering == nil {
		err := bugf("parallel-begin with nil encountering task")
		d.bug(err)
		return nil, err
	}
	if ts == nil || ts.ID == 0 {
		err := bugf("parallel-begin with uninitialized adapter thread-id")
		d.bug(err)
		return nil, err
	}

	if isLeague {
		d.leagueWarnOnce.Do(func() {
			d.warnUnsupportedOnce("league", "teams construct event accounting is not implemented")
		})
	}
	if d.observer != nil {
		d.observer.ObserveEvent("parallel_begin")
	}

	p := d.regions.Get() // refcount already holds the "not yet initialized" sentinel
	p.TeamSize = requestedParallelism
	p.IsLeague = isLeague
	p.ParentTPD = ts.CachedTPD

	if !isLeague {
		p.Handle = d.codeptrs.Resolve(codeptr, interfaces.RegionParallel)
		p.IBarrierHandle = d.codeptrs.Resolve(codeptr, interfaces.RegionImplicitBarrier)
	}

	layout, err := region.NewExplicitTaskLayout(d.substrate.RegionHandleBits(), requestedParallelism)
	if err != nil {
		d.bug(err)
		return nil, err
	}
	p.Layout = layout
	p.EnsureGenerationNumbers(requestedParallelism)

	d.substrate.Fork(requestedParallelism)

	data := d.locs.Get(loc)
	data.ProtectTaskExchange.Lock()
	data.SetTask(nil)
	data.ProtectTaskExchange.Unlock()

	return p, nil
}

// ParallelEnd implements spec.md §4.2 parallel-end.
func (d *Dispatcher) ParallelEnd(ts *ThreadState, loc interfaces.LocationID, p *region.ParallelRegion, encountering *region.Task) error {
	if !d.active() || p == nil {
		return nil
	}
	if d.observer != nil {
		d.observer.ObserveEvent("parallel_end")
	}

	newTPD := d.substrate.Join()
	ts.CachedTPD = newTPD

	data := d.locs.Get(loc)
	data.ProtectTaskExchange.Lock()
	data.SetTask(encountering)
	data.ProtectTaskExchange.Unlock()

	if p.Release() {
		d.regions.Put(p)
	}
	return nil
}

// ImplicitTaskBegin implements spec.md §4.3 implicit-task-begin.
func (d *Dispatcher) ImplicitTaskBegin(ts *ThreadState, p *region.ParallelRegion, loc interfaces.LocationID, index, actualParallelism uint32, isInitial bool) (*region.Task, error) {
	if !d.active() {
		return nil, nil
	}

	if isInitial {
		var task *region.Task
		d.initOnce.Do(func() {
			task = &region.Task{Kind: region.KindInitial, Location: loc}
			d.initialTask = task
			d.implicitParallel = &region.ParallelRegion{}
		})
		if task == nil {
			// A second "initial task" on a different thread is a league
			// root (spec.md §4.1); allocate its own task object rather
			// than reusing the process-wide singleton.
			task = &region.Task{Kind: region.KindInitial, Location: loc, IsLeague: true}
		}
		return task, nil
	}

	if p == nil {
		err := bugf("implicit-task-begin for non-initial task with nil parallel region")
		d.bug(err)
		return nil, err
	}
	if d.observer != nil {
		d.observer.ObserveEvent("implicit_task_begin")
	}

	if index == 0 {
		if actualParallelism < p.TeamSize {
			p.TeamSize = actualParallelism
		}
		p.InitRefcount(p.TeamSize)
	}

	d.TriggerOverdueEvents(loc)

	tpd, scorepTask := d.substrate.TeamBegin(index, p.TeamSize, p.ParentTPD)
	_ = scorepTask
	if !p.IsLeague {
		d.substrate.EnterRegionAt(loc, d.substrate.Now(), p.Handle)
	}

	task := ts.Tasks.Get()
	task.Kind = region.KindImplicit
	task.Region = p
	task.Location = loc
	task.TPD = tpd
	task.TeamSize = p.TeamSize
	task.ThreadIndex = index
	task.IsLeague = p.IsLeague

	data := d.locs.Get(loc)
	data.ProtectTaskExchange.Lock()
	if prev := data.Task(); prev != nil {
		task.Next = prev
	}
	data.SetTask(task)
	data.ProtectTaskExchange.Unlock()
	data.MarkActive()

	return task, nil
}

// ImplicitTaskEnd implements spec.md §4.3 implicit-task-end. Event
// emission is delegated to the overdue coordinator, which is a no-op
// here if ImplicitBarrierEnd (or a concurrent Drain) already closed
// this task's events out. The refcount release and pool return happen
// unconditionally: the runtime fires this callback exactly once per
// task regardless of which path emitted its exit events.
func (d *Dispatcher) ImplicitTaskEnd(ts *ThreadState, task *region.Task, timestamp uint64) error {
	if !d.active() || task == nil || task.Kind == region.KindInitial {
		return nil
	}
	if !task.SyncRegions.Empty() {
		return bugf("implicit-task-end with non-empty sync-region stack")
	}
	if d.observer != nil {
		d.observer.ObserveEvent("implicit_task_end")
	}

	d.overdue.ImplicitTaskEnd(task.Location, d.locs.Get(task.Location), task, timestamp)

	if task.Region.Release() {
		d.regions.Put(task.Region)
	}
	task.WaitOverdueDone()
	ts.Tasks.Put(task)
	return nil
}

// ImplicitBarrierEnd implements the sync-region-end path specific to
// an implicit barrier closing a team (spec.md §4.3.1 "Mirror side").
// It returns true if it also performed the task's itask-end inline;
// the later ImplicitTaskEnd callback still fires and still releases
// the task's refcount, but the overdue coordinator makes its own
// event emission a no-op in that case.
func (d *Dispatcher) ImplicitBarrierEnd(task *region.Task, timestamp uint64) bool {
	data := d.locs.Get(task.Location)
	finished := d.overdue.ImplicitBarrierEnd(task.Location, data, task, timestamp)
	return finished
}
