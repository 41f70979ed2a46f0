package dispatch

import (
	"github.com/behrlich/go-ompt/internal/interfaces"
	"github.com/behrlich/go-ompt/internal/region"
)

// SyncRegionKind classifies the `sync_region` callback's runtime flag
// (spec.md §4.5).
type SyncRegionKind int

const (
	SyncBarrierImplicitParallel SyncRegionKind = iota
	SyncBarrierExplicit
	SyncTaskwait
	SyncTaskgroup
	SyncUnsupported
)

func (k SyncRegionKind) regionKind() interfaces.RegionKind {
	switch k {
	case SyncBarrierImplicitParallel:
		return interfaces.RegionImplicitBarrier
	case SyncBarrierExplicit:
		return interfaces.RegionBarrierExplicit
	case SyncTaskwait:
		return interfaces.RegionTaskwait
	case SyncTaskgroup:
		return interfaces.RegionTaskgroup
	default:
		return interfaces.RegionUnknown
	}
}

// SyncRegionBegin implements spec.md §4.5 sync-region begin: push a
// region handle onto the task's sync-region stack, except the special
// implicit-barrier-closing-a-team case which the caller routes to
// ImplicitBarrierEnd on exit instead of a stack pop.
func (d *Dispatcher) SyncRegionBegin(task *region.Task, kind SyncRegionKind, codeptr uintptr) error {
	if !d.active() || task == nil {
		return nil
	}
	if kind == SyncUnsupported {
		d.warnUnsupportedOnce("sync-region", "reduction/implementation/teams sync-region kind")
		return nil
	}
	if d.observer != nil {
		d.observer.ObserveEvent("sync_region_begin")
	}

	if kind == SyncBarrierImplicitParallel && task.Region != nil {
		// Closed by ImplicitBarrierEnd, which exits the region's cached
		// IBarrierHandle instead of popping this stack.
		d.substrate.EnterRegion(task.Region.IBarrierHandle)
		return nil
	}

	h := d.codeptrs.Resolve(codeptr, kind.regionKind())
	d.substrate.EnterRegion(h)
	if err := task.SyncRegions.Push(h); err != nil {
		d.bug(err)
		return err
	}
	return nil
}

// SyncRegionEnd implements spec.md §4.5 sync-region end for every
// kind except the implicit-barrier-closes-a-team case, which is
// routed through ImplicitBarrierEnd instead (spec.md §4.3.1).
func (d *Dispatcher) SyncRegionEnd(task *region.Task, kind SyncRegionKind) error {
	if !d.active() || task == nil || kind == SyncUnsupported {
		return nil
	}

	h, ok := task.SyncRegions.Pop()
	if !ok {
		err := bugf("sync-region-end with empty stack")
		d.bug(err)
		return err
	}
	d.substrate.ExitRegion(h)
	return nil
}

// WorkKind classifies the `work` callback's construct (spec.md §4.5).
type WorkKind int

const (
	WorkLoop WorkKind = iota
	WorkSections
	WorkSectionsSblock
	WorkSingleExecutor
	WorkSingleSblock
	WorkSingleOther
	WorkShareGeneric
)

func (k WorkKind) regionKind() interfaces.RegionKind {
	switch k {
	case WorkLoop:
		return interfaces.RegionLoop
	case WorkSections:
		return interfaces.RegionSections
	case WorkSectionsSblock:
		return interfaces.RegionSectionsSblock
	case WorkSingleExecutor:
		return interfaces.RegionSingleExecutor
	case WorkSingleSblock:
		return interfaces.RegionSingleSblock
	case WorkSingleOther:
		return interfaces.RegionSingleOther
	default:
		return interfaces.RegionWorkshare
	}
}

// WorkBegin pushes a workshare-region frame (spec.md §4.5: loop
// carries an optional schedule-kind string parameter).
func (d *Dispatcher) WorkBegin(task *region.Task, kind WorkKind, codeptr uintptr, scheduleParam interfaces.ParamHandle, scheduleValue string) error {
	if !d.active() || task == nil {
		return nil
	}

	h := d.codeptrs.Resolve(codeptr, kind.regionKind())
	d.substrate.EnterRegion(h)
	if kind == WorkLoop && scheduleValue != "" {
		d.substrate.TriggerStringParameter(scheduleParam, scheduleValue)
	}
	if kind == WorkSections {
		task.LastSectionHandle = h
	}
	if err := task.WorkshareRegions.Push(h); err != nil {
		d.bug(err)
		return err
	}
	return nil
}

// WorkEnd pops the workshare-region frame (spec.md §4.5).
func (d *Dispatcher) WorkEnd(task *region.Task) error {
	if !d.active() || task == nil {
		return nil
	}
	h, ok := task.WorkshareRegions.Pop()
	if !ok {
		err := bugf("work-end with empty workshare stack")
		d.bug(err)
		return err
	}
	d.substrate.ExitRegion(h)
	return nil
}

// MaskedBegin/MaskedEnd implement the single-frame masked region
// (spec.md §4.5).
func (d *Dispatcher) MaskedBegin(task *region.Task, codeptr uintptr) error {
	if !d.active() || task == nil {
		return nil
	}
	h := d.codeptrs.Resolve(codeptr, interfaces.RegionMasked)
	d.substrate.EnterRegion(h)
	return task.WorkshareRegions.Push(h)
}

func (d *Dispatcher) MaskedEnd(task *region.Task) error {
	if !d.active() || task == nil {
		return nil
	}
	h, ok := task.WorkshareRegions.Pop()
	if !ok {
		err := bugf("masked-end with empty workshare stack")
		d.bug(err)
		return err
	}
	d.substrate.ExitRegion(h)
	return nil
}
