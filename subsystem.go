package ompt

import (
	"sync"
	"sync/atomic"

	"github.com/behrlich/go-ompt/internal/dispatch"
	"github.com/behrlich/go-ompt/internal/interfaces"
	"github.com/behrlich/go-ompt/internal/logging"
)

// SubsystemID is the identifier the runtime assigns this tool at
// subsystem-register time (spec.md §4.9 "Subsystem register").
type SubsystemID uint32

// SubsystemHooks is the registration descriptor the runtime's
// start_tool entry point hands back: one func slot per subsystem
// lifecycle hook (spec.md §4.9, §6 "Subsystem registration descriptor
// with hook slots for register, init, begin, end, init_location,
// trigger_overdue_events"). An ABI bridge (outside this module's
// scope) is the only intended caller of these slots directly; everyday
// test and library code drives the equivalent Adapter methods.
type SubsystemHooks struct {
	Register            func(id SubsystemID)
	Init                func()
	Begin               func()
	End                 func(finalize func())
	InitLocation        func(loc interfaces.LocationID)
	TriggerOverdueEvents func(loc interfaces.LocationID)
}

// ToolDescriptor is what a start_tool entry point returns to the
// runtime (spec.md §6: "a start_tool entry returning a descriptor with
// an initializer receiving a lookup function, and a finalizer").
type ToolDescriptor struct {
	// Initialize is called once by the runtime with a callback-lookup
	// function; it returns false if the tool declines to attach.
	Initialize func(lookup func(name string) any) bool
	// Finalize is called once at subsystem-end.
	Finalize func()
}

// AdapterOptions configures a new Adapter, mirroring the teacher's
// CreateAndServe Options struct (Logger/Observer, both optional).
type AdapterOptions struct {
	// Logger receives adapter debug/warn/error/fatal messages. Defaults
	// to internal/logging's process-wide default logger.
	Logger interfaces.Logger
	// Observer receives per-event metrics. Defaults to a fresh
	// MetricsObserver backed by a new Metrics instance, retrievable via
	// Adapter.Metrics().
	Observer interfaces.Observer
}

// Adapter is the subsystem-level glue binding a measurement substrate,
// logger, and metrics observer to a dispatch.Dispatcher, and exposing
// the spec.md §4.9 subsystem lifecycle as both a SubsystemHooks
// descriptor and plain Go methods (spec.md §4.9, §6).
type Adapter struct {
	substrate  interfaces.Substrate
	logger     interfaces.Logger
	metrics    *Metrics
	dispatcher *dispatch.Dispatcher

	subsystemID atomic.Uint32

	// finalizeMu serializes concurrent subsystem-end deliveries across
	// teams during finalize_tool (spec.md §4.9, §8 scenario F: "A
	// single finalize_tool mutex serializes this per-team cleanup").
	finalizeMu sync.Mutex
}

// NewAdapter constructs an Adapter over the given measurement
// substrate. If opts is nil, default logger and a metrics-backed
// observer are used (teacher's CreateAndServe "if options == nil"
// pattern).
func NewAdapter(substrate interfaces.Substrate, opts *AdapterOptions) *Adapter {
	if opts == nil {
		opts = &AdapterOptions{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	metrics := NewMetrics()
	observer := opts.Observer
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}

	a := &Adapter{
		substrate:  substrate,
		logger:     logger,
		metrics:    metrics,
		dispatcher: dispatch.New(substrate, logger, observer),
	}
	return a
}

// Dispatcher returns the underlying dispatch.Dispatcher, for an ABI
// bridge to drive the per-callback methods (ParallelBegin, TaskCreate,
// MutexAcquire, ...) that this file does not re-expose.
func (a *Adapter) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// Metrics returns the adapter's metrics instance. NewAdapter always
// allocates one; when the caller supplied a custom Observer, no events
// are recorded into it (only End's Stop time).
func (a *Adapter) Metrics() *Metrics {
	return a.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of adapter metrics.
func (a *Adapter) MetricsSnapshot() MetricsSnapshot {
	if a.metrics == nil {
		return MetricsSnapshot{}
	}
	return a.metrics.Snapshot()
}

// Register implements "Subsystem register: store assigned subsystem
// id" (spec.md §4.9).
func (a *Adapter) Register(id SubsystemID) {
	a.subsystemID.Store(uint32(id))
}

// SubsystemID returns the id most recently passed to Register, or 0 if
// Register has not yet been called.
func (a *Adapter) SubsystemID() SubsystemID {
	return SubsystemID(a.subsystemID.Load())
}

// Init is the subsystem-init hook (spec.md §4.9). It makes no
// substrate calls: it does not register a paradigm, declare a
// thread-team communicator template, or register an unload callback
// for the codeptr cache. The Dispatcher built by NewAdapter is already
// ready for InitLocation and Begin without it.
func (a *Adapter) Init() {}

// Begin implements "Subsystem begin: set the gate record_events = true"
// (spec.md §4.9).
func (a *Adapter) Begin() {
	a.dispatcher.Begin()
}

// End implements "Subsystem end" (spec.md §4.9): set finalizing_tool,
// let finalize_tool deliver any remaining events through the
// overdue-aware path, then clear record_events. The finalize_tool
// delivery itself is serialized by finalizeMu across concurrent teams
// (spec.md §8 scenario F).
func (a *Adapter) End(finalize func()) {
	a.finalizeMu.Lock()
	defer a.finalizeMu.Unlock()
	a.dispatcher.End(finalize)
	if a.metrics != nil {
		a.metrics.Stop()
	}
}

// InitLocation implements "Subsystem init-location: for every new CPU
// location, allocate a cache-line-aligned subsystem-data block" (spec.md
// §4.9).
func (a *Adapter) InitLocation(loc interfaces.LocationID) {
	a.dispatcher.InitLocation(loc)
}

// TriggerOverdueEvents implements the §4.3.1 hook invoked before a
// location is reused by a new implicit-task-begin.
func (a *Adapter) TriggerOverdueEvents(loc interfaces.LocationID) {
	a.dispatcher.TriggerOverdueEvents(loc)
}

// ThreadBegin assigns the next monotonic adapter thread-id for a newly
// observed OS thread (spec.md §3).
func (a *Adapter) ThreadBegin() *dispatch.ThreadState {
	return a.dispatcher.ThreadBegin()
}

// ThreadEnd releases any thread-local state for ts.
func (a *Adapter) ThreadEnd(ts *dispatch.ThreadState) {
	a.dispatcher.ThreadEnd(ts)
}

// Hooks returns the SubsystemHooks descriptor for this adapter, for an
// ABI bridge that wants function values rather than method calls.
func (a *Adapter) Hooks() SubsystemHooks {
	return SubsystemHooks{
		Register:             a.Register,
		Init:                 a.Init,
		Begin:                a.Begin,
		End:                  a.End,
		InitLocation:         a.InitLocation,
		TriggerOverdueEvents: a.TriggerOverdueEvents,
	}
}

// StartTool is the module's entry point matching the standardized
// tool-callback ABI's start_tool shape (spec.md §6): given a
// measurement substrate, it constructs an Adapter and returns it
// alongside a ToolDescriptor whose Initialize/Finalize hooks drive the
// adapter's Begin/End.
func StartTool(substrate interfaces.Substrate, opts *AdapterOptions) (*Adapter, ToolDescriptor) {
	a := NewAdapter(substrate, opts)
	desc := ToolDescriptor{
		Initialize: func(lookup func(name string) any) bool {
			a.Init()
			a.Begin()
			return true
		},
		Finalize: func() {
			a.End(nil)
		},
	}
	return a, desc
}
