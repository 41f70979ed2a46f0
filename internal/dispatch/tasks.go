package dispatch

import (
	"github.com/behrlich/go-ompt/internal/interfaces"
	"github.com/behrlich/go-ompt/internal/region"
)

// TaskCreate implements spec.md §4.4 task-create: encode the new
// task's identity into the 64-bit opaque word instead of allocating,
// so creation never touches a pool on a thread that may not be the
// one executing the task.
func (d *Dispatcher) TaskCreate(task *region.Task, threadNum uint32, codeptr uintptr, isUntied, isMerged bool) (uint64, error) {
	if !d.active() || task == nil {
		return 0, nil
	}
	if d.observer != nil {
		d.observer.ObserveEvent("task_create")
	}

	createHandle := d.codeptrs.Resolve(codeptr, interfaces.RegionTaskCreate)
	now := d.substrate.Now()
	d.substrate.EnterRegionAt(task.Location, now, createHandle)
	d.substrate.ExitRegionAt(task.Location, now, createHandle)

	if isMerged {
		// task-create sets new_task_data->ptr = encountering_task->ptr
		// and returns; no generation number is consumed (spec.md §4.4).
		return uint64(taskWordForMerged), nil
	}

	preg := task.Region
	gen := preg.NextGeneration(threadNum)
	if gen > preg.Layout.MaxGeneration() {
		err := bugf("explicit-task generation number overflow for thread %d", threadNum)
		d.bug(err)
		return 0, err
	}

	d.substrate.TaskCreate(threadNum, gen)

	// The task construct itself resolves a distinct region from the
	// zero-duration create event above: task vs. task_untied, chosen by
	// isUntied (spec.md §4.4, Scenario C).
	taskKind := interfaces.RegionTask
	if isUntied {
		taskKind = interfaces.RegionTaskUntied
	}
	h := d.codeptrs.Resolve(codeptr, taskKind)
	return preg.Layout.Encode(h, threadNum, gen), nil
}

// taskWordForMerged is the sentinel merged tasks carry: zero, with
// the new-task flag clear, so the first task-schedule for it is
// treated as already-a-real-pointer and skipped as a no-op switch
// (spec.md §4.4 "Merged tasks ... produce no schedule events").
const taskWordForMerged = 0

// ResolveTaskWord implements spec.md §4.4 "At the first task-schedule
// that sees a task carrying the new-task flag": decode word, allocate
// a real task object, and call substrate task_begin. Callers must
// check the new-task flag (e.g. word&1) themselves before calling
// this — once a runtime's opaque slot holds a real pointer instead of
// an encoded word, it must never be passed back through Decode.
func (d *Dispatcher) ResolveTaskWord(pool *region.TaskPool, parent *region.ParallelRegion, word uint64, loc interfaces.LocationID) (*region.Task, error) {
	if !d.active() || word == taskWordForMerged {
		return nil, nil
	}

	regionHandle, threadNum, gen, isNew := parent.Layout.Decode(word)
	if !isNew {
		return nil, bugf("ResolveTaskWord called on a word whose new-task flag is already clear")
	}
	if regionHandle == 0 {
		// Undeferred: reuse the parallel region's shared task, emit no
		// substrate task events (spec.md §4.4).
		t := &parent.UndeferredTask
		t.Kind = region.KindUndeferred
		t.IsUndeferred = true
		t.Region = parent
		t.Location = loc
		return t, nil
	}

	t := pool.Get()
	t.Kind = region.KindExplicit
	t.Region = parent
	t.Location = loc
	t.TaskRegion = regionHandle
	t.ScorepTask = d.substrate.TaskBegin(regionHandle, threadNum, gen)
	return t, nil
}

// TaskScheduleSwitch implements the *switch* status (spec.md §4.4):
// emit task_switch, and if the location's current task changed,
// publish it under the exchange mutex so a later overdue drain finds
// the right task.
func (d *Dispatcher) TaskScheduleSwitch(loc interfaces.LocationID, newTask *region.Task) {
	if !d.active() || newTask == nil || newTask.IsUndeferred {
		return
	}
	if d.observer != nil {
		d.observer.ObserveEvent("task_switch")
	}
	d.substrate.TaskSwitch(newTask.ScorepTask)

	data := d.locs.Get(loc)
	data.ProtectTaskExchange.Lock()
	if data.Task() != newTask {
		data.SetTask(newTask)
	}
	data.ProtectTaskExchange.Unlock()
}

// TaskScheduleComplete implements the *complete* status (spec.md
// §4.4): emit task_end and return the task to its pool, skipping the
// shared undeferred task.
func (d *Dispatcher) TaskScheduleComplete(pool *region.TaskPool, task *region.Task) {
	if !d.active() || task == nil {
		return
	}
	if d.observer != nil {
		d.observer.ObserveEvent("task_end")
	}
	if task.IsUndeferred {
		return
	}
	d.substrate.TaskEnd(task.TaskRegion, task.ScorepTask)
	pool.Put(task)
}
