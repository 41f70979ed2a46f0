package dispatch

import (
	"github.com/behrlich/go-ompt/internal/interfaces"
	"github.com/behrlich/go-ompt/internal/mutexreg"
	"github.com/behrlich/go-ompt/internal/region"
)

// MutexAcquire implements spec.md §4.6 mutex-acquire across all mutex
// kinds. mutex_atomic is intentionally ignored (not even recorded on
// the task).
func (d *Dispatcher) MutexAcquire(task *region.Task, kind interfaces.MutexKind, codeptr uintptr, timestamp uint64) error {
	if !d.active() || task == nil || kind == interfaces.MutexAtomic {
		return nil
	}

	if kind == interfaces.MutexLock || kind == interfaces.MutexNestLock {
		h := d.codeptrs.Resolve(codeptr, interfaces.RegionLockSet)
		d.substrate.EnterRegionAt(task.Location, timestamp, h)
		task.LockSetRegion = h
		return nil
	}

	task.MutexAcquireTimestamp = timestamp
	task.MutexAcquireCodeptr = codeptr
	return nil
}

// MutexAcquired implements spec.md §4.6 mutex-acquired. waitID
// identifies the mutex across the acquire/acquired/released trio.
func (d *Dispatcher) MutexAcquired(task *region.Task, kind interfaces.MutexKind, waitID uint64) error {
	if !d.active() || task == nil || kind == interfaces.MutexAtomic {
		return nil
	}

	if d.observer != nil {
		d.observer.ObserveEvent("mutex_acquired")
	}
	m := d.mutexes.GetOrCreate(waitID, kind)

	switch kind {
	case interfaces.MutexLock, interfaces.MutexNestLock:
		return d.lockAcquired(task, kind, m)
	case interfaces.MutexCritical, interfaces.MutexOrdered:
		return d.criticalOrderedAcquired(task, kind, m)
	}
	return nil
}

func (d *Dispatcher) lockAcquired(task *region.Task, kind interfaces.MutexKind, m *mutexreg.Mutex) error {
	d.registerLockAcquired(kind, m)
	d.substrate.ExitRegion(task.LockSetRegion)
	return nil
}

// registerLockAcquired performs the in_release_operation/
// acquisition_order/acquire_lock steps shared by the normal and
// test-lock acquired paths (spec.md §4.6). in_release_operation is
// held only across the outermost acquire<->release window: a nested
// nest-lock re-acquisition on an already-held lock must not attempt
// to lock it again, since sync.Mutex is not reentrant and the same
// task is the one already holding it.
func (d *Dispatcher) registerLockAcquired(kind interfaces.MutexKind, m *mutexreg.Mutex) {
	outermost := true
	if kind == interfaces.MutexNestLock {
		outermost = m.IncrementNestLevel()
	}
	if outermost {
		m.InReleaseOperation.Lock()
	}

	order := m.AcquisitionOrder()
	if outermost {
		order = m.NextAcquisitionOrder()
	}
	d.substrate.AcquireLock(m.ID, order)
}

func (d *Dispatcher) criticalOrderedAcquired(task *region.Task, kind interfaces.MutexKind, m *mutexreg.Mutex) error {
	outerKind := interfaces.RegionCritical
	sblockKind := interfaces.RegionCriticalSblock
	if kind == interfaces.MutexOrdered {
		outerKind = interfaces.RegionOrdered
		sblockKind = interfaces.RegionOrderedSblock
	}

	m.OuterRegion = d.codeptrs.Resolve(task.MutexAcquireCodeptr, outerKind)
	m.SblockRegion = d.codeptrs.Resolve(task.MutexAcquireCodeptr, sblockKind)

	d.substrate.EnterRegionAt(task.Location, task.MutexAcquireTimestamp, m.OuterRegion)

	m.InReleaseOperation.Lock()
	order := m.NextAcquisitionOrder()
	d.substrate.AcquireLock(m.ID, order)

	d.substrate.EnterRegion(m.SblockRegion)
	return nil
}

// MutexReleased implements spec.md §4.6 mutex-released. codeptr is
// this callback's own return address, used by mutex_lock/
// mutex_nest_lock to resolve the unset region; it is unused for
// critical/ordered, whose outer/sblock handles were already resolved
// and stored on the mutex object at acquired time.
func (d *Dispatcher) MutexReleased(task *region.Task, kind interfaces.MutexKind, waitID uint64, codeptr uintptr) error {
	if !d.active() || task == nil || kind == interfaces.MutexAtomic {
		return nil
	}

	m, ok := d.mutexes.Lookup(waitID, kind)
	if !ok {
		return bugf("mutex-released for unknown wait-id %d kind %d", waitID, kind)
	}

	switch kind {
	case interfaces.MutexLock, interfaces.MutexNestLock:
		unsetRegion := d.codeptrs.Resolve(codeptr, interfaces.RegionLockUnset)
		d.substrate.EnterRegion(unsetRegion)
		d.substrate.ReleaseLock(m.ID, m.AcquisitionOrder())

		outermost := true
		if kind == interfaces.MutexNestLock {
			outermost = m.DecrementNestLevel() == 0
		}
		if outermost {
			m.InReleaseOperation.Unlock()
		}
		d.substrate.ExitRegion(unsetRegion)
	case interfaces.MutexCritical, interfaces.MutexOrdered:
		d.substrate.ExitRegion(m.SblockRegion)
		d.substrate.ReleaseLock(m.ID, m.AcquisitionOrder())
		m.InReleaseOperation.Unlock()
		d.substrate.ExitRegion(m.OuterRegion)
	}
	return nil
}

// TestLockAcquire implements spec.md §4.6 mutex_test_lock /
// mutex_test_nest_lock: only record a timestamp at acquire, and only
// emit events if the subsequent acquired callback confirms success.
func (d *Dispatcher) TestLockAcquire(task *region.Task, codeptr uintptr, timestamp uint64) {
	if task == nil {
		return
	}
	task.MutexAcquireTimestamp = timestamp
	task.MutexAcquireCodeptr = codeptr
}

// TestLockAcquired emits the test-lock region enter at the recorded
// acquire timestamp, then the normal acquired bookkeeping in place of
// the lock-set/unset region pair mutex_lock would otherwise use
// (spec.md §4.6: "emit a test-lock region enter ... followed by the
// normal acquired path").
func (d *Dispatcher) TestLockAcquired(task *region.Task, kind interfaces.MutexKind, waitID uint64) error {
	if !d.active() || task == nil || kind == interfaces.MutexAtomic {
		return nil
	}
	h := d.codeptrs.Resolve(task.MutexAcquireCodeptr, interfaces.RegionTestLock)
	d.substrate.EnterRegionAt(task.Location, task.MutexAcquireTimestamp, h)
	m := d.mutexes.GetOrCreate(waitID, kind)
	d.registerLockAcquired(kind, m)
	d.substrate.ExitRegion(h)
	return nil
}

// LockInitKind distinguishes plain/hinted/nest lock-init variants
// (spec.md §4.6).
type LockInitKind int

const (
	LockInitPlain LockInitKind = iota
	LockInitHinted
	LockInitNest
)

// LockInit/LockDestroy implement the zero-duration init/destroy
// region events (spec.md §4.6).
func (d *Dispatcher) LockInit(task *region.Task, k LockInitKind, codeptr uintptr) {
	if !d.active() || task == nil {
		return
	}
	kind := interfaces.RegionLockInit
	if k == LockInitNest {
		kind = interfaces.RegionLockInitNest
	}
	h := d.codeptrs.Resolve(codeptr, kind)
	now := d.substrate.Now()
	d.substrate.EnterRegionAt(task.Location, now, h)
	d.substrate.ExitRegionAt(task.Location, now, h)
}

func (d *Dispatcher) LockDestroy(task *region.Task, isNest bool, codeptr uintptr) {
	if !d.active() || task == nil {
		return
	}
	kind := interfaces.RegionLockDestroy
	if isNest {
		kind = interfaces.RegionLockDestroyNest
	}
	h := d.codeptrs.Resolve(codeptr, kind)
	now := d.substrate.Now()
	d.substrate.EnterRegionAt(task.Location, now, h)
	d.substrate.ExitRegionAt(task.Location, now, h)
}

// NestLockScope implements the nest-lock "owned"/"held" scope
// begin/end callbacks: adjust nest_level only, reusing the acquire or
// release machinery for an already-held lock (spec.md §4.6).
func (d *Dispatcher) NestLockScopeBegin(task *region.Task, waitID uint64) error {
	if !d.active() || task == nil {
		return nil
	}
	m := d.mutexes.GetOrCreate(waitID, interfaces.MutexNestLock)
	if m.IncrementNestLevel() {
		d.substrate.AcquireLock(m.ID, m.NextAcquisitionOrder())
	}
	return nil
}

func (d *Dispatcher) NestLockScopeEnd(task *region.Task, waitID uint64) error {
	if !d.active() || task == nil {
		return nil
	}
	m, ok := d.mutexes.Lookup(waitID, interfaces.MutexNestLock)
	if !ok {
		return bugf("nest-lock scope-end for unknown wait-id %d", waitID)
	}
	if level := m.DecrementNestLevel(); level == 0 {
		d.substrate.ReleaseLock(m.ID, m.AcquisitionOrder())
	}
	return nil
}
