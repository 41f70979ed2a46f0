// Package dispatch implements the callback state machine (spec.md
// §4.1): one method per OMPT callback kind, each validating its
// arguments, performing its protocol step against the pool, caches,
// and overdue coordinator, then emitting substrate events.
package dispatch

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/behrlich/go-ompt/internal/interfaces"
	"github.com/behrlich/go-ompt/internal/location"
	"github.com/behrlich/go-ompt/internal/mutexreg"
	"github.com/behrlich/go-ompt/internal/overdue"
	"github.com/behrlich/go-ompt/internal/region"
)

// BugError reports a protocol invariant violation (spec.md §7
// "Protocol bug"): fatal, the caller should route it through the
// adapter's abort path rather than recovering.
type BugError struct {
	msg string
}

func (e *BugError) Error() string { return "protocol bug: " + e.msg }

func bugf(format string, args ...any) error {
	return &BugError{msg: fmt.Sprintf(format, args...)}
}

// ThreadState is the runtime's per-OS-thread opaque slot: the
// dispatcher's ThreadBegin call returns one, and every later callback
// on that thread must pass it back in, mirroring the ompt_data_t
// thread-private storage the real ABI provides (spec.md §3
// "Thread-local state", §6).
type ThreadState struct {
	ID    uint64
	Tasks region.TaskPool

	// CachedTPD carries the substrate's thread-private handle from
	// parallel-begin to implicit-task-begin on this thread (spec.md
	// §3, §9: "single-producer/single-consumer discipline").
	CachedTPD interfaces.ThreadPrivateData
}

// Dispatcher owns every process-global piece of adapter state:
// region/mutex registries, the location table, the overdue
// coordinator, and the gates that decide whether a callback is live.
type Dispatcher struct {
	substrate interfaces.Substrate
	logger    interfaces.Logger
	observer  interfaces.Observer

	regions  region.RegionPool
	codeptrs *region.CodeptrCache
	mutexes  *mutexreg.Registry
	locs     *location.Table
	overdue  *overdue.Coordinator

	threadCounter atomic.Uint64

	recordEvents   atomic.Bool
	finalizingTool atomic.Bool

	leagueWarnOnce      sync.Once
	unsupportedWarnOnce sync.Map // map[string]*sync.Once, one-shot per unsupported-feature kind

	initialTask     *region.Task
	implicitParallel *region.ParallelRegion
	initOnce        sync.Once
}

// New constructs a Dispatcher over the given measurement substrate.
func New(substrate interfaces.Substrate, logger interfaces.Logger, observer interfaces.Observer) *Dispatcher {
	d := &Dispatcher{
		substrate: substrate,
		logger:    logger,
		observer:  observer,
		locs:      location.NewTable(substrate),
		mutexes:   mutexreg.NewRegistry(),
	}
	d.codeptrs = region.NewCodeptrCache(substrate, substrate, logger)
	d.overdue = overdue.New(substrate, substrate, substrate, observer)
	return d
}

// Begin sets the record_events gate (spec.md §4.9 "Subsystem begin").
func (d *Dispatcher) Begin() {
	d.recordEvents.Store(true)
}

// End sets finalizing_tool, lets callers deliver any remaining
// callbacks through the overdue-aware path, then clears record_events
// (spec.md §4.9 "Subsystem end").
func (d *Dispatcher) End(finalize func()) {
	d.finalizingTool.Store(true)
	if finalize != nil {
		finalize()
	}
	d.recordEvents.Store(false)
}

// active reports whether a callback arriving right now should be
// processed: the gate is open, or we are inside subsystem-end's own
// finalize_tool delivery (spec.md §4.1: "Events arriving before
// subsystem-begin or after subsystem-end (except those triggered from
// inside subsystem-end's tool-finalize) are discarded silently").
func (d *Dispatcher) active() bool {
	return d.recordEvents.Load() || d.finalizingTool.Load()
}

// bug routes a protocol-invariant violation through the logger's
// fatal path (spec.md §7: fatal, process abort, no recovery).
func (d *Dispatcher) bug(err error) {
	if d.observer != nil {
		d.observer.ObserveBug(err.Error())
	}
	if d.logger != nil {
		d.logger.Fatalf("%v", err)
	}
}

// warnUnsupportedOnce emits a single warning per distinct unsupported
// feature kind for the lifetime of this dispatcher (spec.md §7
// "Unsupported feature ... single-shot warning").
func (d *Dispatcher) warnUnsupportedOnce(kind string, detail string) {
	onceVal, _ := d.unsupportedWarnOnce.LoadOrStore(kind, &sync.Once{})
	once := onceVal.(*sync.Once)
	once.Do(func() {
		if d.observer != nil {
			d.observer.ObserveWarning(kind)
		}
		if d.logger != nil {
			d.logger.Warnf("unsupported feature %q skipped: %s", kind, detail)
		}
	})
}

// ThreadBegin assigns the next monotonic adapter thread-id (spec.md
// §3: "starting at 1; 0 means uninitialized").
func (d *Dispatcher) ThreadBegin() *ThreadState {
	return &ThreadState{ID: d.threadCounter.Add(1)}
}

// ThreadEnd releases any thread-local pool state. ThreadState's pool
// is owned solely by the caller's thread so there is nothing to
// synchronize here; the method exists so the dispatcher has a
// symmetric hook for subsystem thread-lifecycle bookkeeping.
func (d *Dispatcher) ThreadEnd(ts *ThreadState) {
	_ = ts
}

// InitLocation is the subsystem-init-location hook (spec.md §4.9
// "Subsystem init-location"): allocate the per-location data block.
func (d *Dispatcher) InitLocation(loc interfaces.LocationID) {
	d.locs.Init(loc)
}

// TriggerOverdueEvents is the §4.3.1 hook invoked before a location is
// reused by a new implicit-task-begin.
func (d *Dispatcher) TriggerOverdueEvents(loc interfaces.LocationID) {
	data := d.locs.Get(loc)
	d.overdue.Drain(loc, data)
}
