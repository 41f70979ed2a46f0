// Package location holds the per-CPU-location subsystem data block
// the adapter attaches at location-init: the task pointer a location
// is currently "owed" exits for, and the two mutexes that mediate the
// overdue-event handoff between the owning thread and whichever
// thread discovers the location needs draining (spec.md §3, §5).
package location

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/behrlich/go-ompt/internal/interfaces"
	"github.com/behrlich/go-ompt/internal/region"
)

// Data is one CPU location's subsystem-private state. The two mutexes
// are separated by padding so they never share a cache line (spec.md
// §3: "These two mutexes sit on separate cache lines (padded)").
type Data struct {
	// ProtectTaskExchange guards atomic read-modify-write of Task.
	ProtectTaskExchange sync.Mutex
	_                   [56]byte // pad ProtectTaskExchange off PreserveOrder's cache line

	// PreserveOrder is held for the duration of the drain-overdue
	// critical region by either party to enforce total order on this
	// location (spec.md §3, §4.3.1).
	PreserveOrder sync.Mutex
	_             [56]byte

	task          *region.Task
	isOmptLocation atomic.Bool
}

// Table owns the per-location Data blocks, keyed by LocationID,
// allocated lazily at location-init (spec.md §4.9 "Subsystem
// init-location"). Lookups are rare relative to the hot event path so
// a plain mutex-protected map is used rather than the monotonic hash
// tables that guard the codeptr/wait-id caches.
type Table struct {
	mu   sync.RWMutex
	data map[interfaces.LocationID]*Data
	mem  interfaces.Memory
}

// NewTable constructs an empty location table. mem backs every Data
// block's allocation (spec.md §4.9 "allocate a cache-line-aligned
// subsystem-data block").
func NewTable(mem interfaces.Memory) *Table {
	return &Table{data: make(map[interfaces.LocationID]*Data), mem: mem}
}

// Init allocates a subsystem-data block for loc if one does not
// already exist, and returns it.
func (t *Table) Init(loc interfaces.LocationID) *Data {
	t.mu.RLock()
	d, ok := t.data[loc]
	t.mu.RUnlock()
	if ok {
		return d
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.data[loc]; ok {
		return d
	}
	d = t.alloc()
	t.data[loc] = d
	return d
}

// alloc carves a zeroed Data block out of t.mem.AlignedAlloc rather
// than a plain Go allocation, the same way the teacher's
// internal/uapi/marshal.go reinterprets a raw byte buffer as a typed
// value (unsafe.Pointer over a []byte) instead of allocating the typed
// value directly. mem.AlignedAlloc's buffer is freshly zeroed, which is
// a valid zero value for Data's sync.Mutex and atomic.Bool fields.
func (t *Table) alloc() *Data {
	buf := t.mem.AlignedAlloc(int(unsafe.Sizeof(Data{})))
	return (*Data)(unsafe.Pointer(&buf[0]))
}

// Get returns the subsystem-data block for loc, allocating it if
// this is the first reference (a defensive fallback; in practice
// every location passes through Init via subsystem init-location
// first).
func (t *Table) Get(loc interfaces.LocationID) *Data {
	return t.Init(loc)
}

// Task returns the task this location currently owes exits for, or
// nil.
func (d *Data) Task() *region.Task {
	return d.task
}

// SetTask stores the current task pointer. Callers must hold
// ProtectTaskExchange.
func (d *Data) SetTask(t *region.Task) {
	d.task = t
}

// MarkActive sets is_ompt_location true, done once the first
// implicit-task-begin completes on this location (spec.md §3).
func (d *Data) MarkActive() {
	d.isOmptLocation.Store(true)
}

// IsActive reports whether this location has ever completed an
// implicit-task-begin.
func (d *Data) IsActive() bool {
	return d.isOmptLocation.Load()
}
