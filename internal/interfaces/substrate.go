// Package interfaces defines the boundary between the adapter core and
// its external collaborators: the measurement substrate the adapter
// forwards events to, the address resolver, and the adapter-facing
// logger/observer. These are separate from any cgo/OMPT ABI bridge to
// avoid circular imports between that bridge and the core packages
// that implement the protocol.
package interfaces

// RegionHandle identifies a region definition registered with the
// substrate's definition registry (spec.md §4.7, §6).
type RegionHandle uint32

// MutexHandle is the numeric lock id the substrate uses to identify a
// mutex/lock across acquire/acquired/released events (spec.md §4.8).
type MutexHandle uint32

// SourceFileHandle identifies a source file registered with the
// substrate.
type SourceFileHandle uint32

// ParamHandle identifies a string-parameter definition (e.g. a loop
// schedule kind attached to a work region, spec.md §4.5).
type ParamHandle uint32

// CommunicatorHandle identifies an interim thread-team communicator
// (spec.md §4.9, subsystem init).
type CommunicatorHandle uint32

// LocationID identifies a CPU (or non-CPU) location in the substrate's
// location table (spec.md §3, §6).
type LocationID uint32

// ThreadPrivateData is the substrate's opaque handle representing a
// thread across fork/join and team-begin/team-end (spec.md glossary:
// TPD).
type ThreadPrivateData uint64

// TaskHandle is the substrate's opaque handle for a task, returned
// from TaskBegin and consumed by TaskSwitch/TaskEnd.
type TaskHandle uint64

// RegionKind classifies a region for definition-registry naming and
// for event bookkeeping (spec.md §4.5, §4.6).
type RegionKind int

const (
	RegionUnknown RegionKind = iota
	RegionParallel
	RegionImplicitBarrier
	RegionBarrierExplicit
	RegionTaskwait
	RegionTaskgroup
	RegionLoop
	RegionSections
	RegionSectionsSblock
	RegionSingleExecutor
	RegionSingleSblock
	RegionSingleOther
	RegionWorkshare
	RegionMasked
	RegionTaskCreate
	RegionTask
	RegionTaskUntied
	RegionLockSet
	RegionLockUnset
	RegionCritical
	RegionCriticalSblock
	RegionOrdered
	RegionOrderedSblock
	RegionTestLock
	RegionLockInit
	RegionLockInitNest
	RegionLockDestroy
	RegionLockDestroyNest
)

// String returns the region-kind prefix used when synthesizing a
// region name from a codeptr (spec.md §4.7: "<kind-prefix> @<file>:<line>").
func (k RegionKind) String() string {
	switch k {
	case RegionParallel:
		return "parallel"
	case RegionImplicitBarrier:
		return "implicit-barrier"
	case RegionBarrierExplicit:
		return "barrier"
	case RegionTaskwait:
		return "taskwait"
	case RegionTaskgroup:
		return "taskgroup"
	case RegionLoop:
		return "loop"
	case RegionSections:
		return "sections"
	case RegionSectionsSblock:
		return "sections-section"
	case RegionSingleExecutor:
		return "single"
	case RegionSingleSblock:
		return "single-sblock"
	case RegionSingleOther:
		return "single-other"
	case RegionWorkshare:
		return "workshare"
	case RegionMasked:
		return "masked"
	case RegionTaskCreate:
		return "task-create"
	case RegionTask:
		return "task"
	case RegionTaskUntied:
		return "task-untied"
	case RegionLockSet:
		return "lock-set"
	case RegionLockUnset:
		return "lock-unset"
	case RegionCritical:
		return "critical"
	case RegionCriticalSblock:
		return "critical-sblock"
	case RegionOrdered:
		return "ordered"
	case RegionOrderedSblock:
		return "ordered-sblock"
	case RegionTestLock:
		return "test-lock"
	case RegionLockInit:
		return "lock-init"
	case RegionLockInitNest:
		return "nest-lock-init"
	case RegionLockDestroy:
		return "lock-destroy"
	case RegionLockDestroyNest:
		return "nest-lock-destroy"
	default:
		return "unknown"
	}
}

// MutexKind classifies the wait-id->mutex registry entry (spec.md
// §4.6, §4.8).
type MutexKind int

const (
	MutexUnknown MutexKind = iota
	MutexLock
	MutexNestLock
	MutexCritical
	MutexOrdered
	MutexAtomic // intentionally ignored, spec.md §4.6
)

// SourceLocation is the result of resolving a runtime-reported return
// address (spec.md §4.7).
type SourceLocation struct {
	File     string
	Line     int
	Function string
	HasDebug bool
}

// DefinitionRegistry registers regions, source files, parameters, and
// communicators with the substrate (spec.md §6).
type DefinitionRegistry interface {
	NewSourceFile(name string) SourceFileHandle
	NewRegion(name, canonicalName string, file SourceFileHandle, beginLine, endLine int, kind RegionKind) RegionHandle
	NewParameter(name string, kind RegionKind) ParamHandle
	NewInterimCommunicator(parent CommunicatorHandle, size int) CommunicatorHandle
	// RegionHandleBits returns the process-wide bit width of a region
	// handle id, used by the explicit-task bit-packing (spec.md §4.4).
	RegionHandleBits() uint
}

// LocationManager exposes the substrate's location table (spec.md §6).
type LocationManager interface {
	CurrentLocation() LocationID
	CreateLocation(name string) LocationID
	// LastTimestamp returns the last timestamp written to this
	// location's event stream, used to clip clock anomalies (spec.md §7).
	LastTimestamp(loc LocationID) uint64
}

// EventSink is the region enter/exit event stream (spec.md §6).
type EventSink interface {
	EnterRegion(region RegionHandle)
	ExitRegion(region RegionHandle)
	EnterRegionAt(loc LocationID, timestamp uint64, region RegionHandle)
	ExitRegionAt(loc LocationID, timestamp uint64, region RegionHandle)
	TriggerStringParameter(param ParamHandle, value string)
}

// ThreadingSink is the fork/join/team-begin/team-end event stream
// (spec.md §6).
type ThreadingSink interface {
	Fork(requestedParallelism uint32)
	Join() ThreadPrivateData
	TeamBegin(index, teamSize uint32, parentTPD ThreadPrivateData) (ThreadPrivateData, TaskHandle)
	TeamEnd(tpd ThreadPrivateData, timestamp uint64, index, teamSize uint32)
}

// TaskSink is the explicit-task lifecycle event stream (spec.md §6).
type TaskSink interface {
	TaskCreate(threadNum, gen uint32)
	TaskBegin(region RegionHandle, threadNum, gen uint32) TaskHandle
	TaskSwitch(task TaskHandle)
	TaskEnd(region RegionHandle, task TaskHandle)
}

// LockSink is the mutex acquire/release event stream (spec.md §6).
type LockSink interface {
	AcquireLock(id MutexHandle, order uint64)
	ReleaseLock(id MutexHandle, order uint64)
}

// AddressResolver maps a runtime-reported return address to a source
// location (spec.md §4.7, §6).
type AddressResolver interface {
	Resolve(addr uintptr) SourceLocation
}

// Phase is the substrate's measurement-phase gate (spec.md §6: PRE /
// WITHIN / POST).
type Phase int

const (
	PhasePre Phase = iota
	PhaseWithin
	PhasePost
)

// Gate exposes the substrate's phase state.
type Gate interface {
	Phase() Phase
}

// Timer is the substrate's monotonic clock (spec.md §6).
type Timer interface {
	Now() uint64
}

// Memory exposes cache-line-aligned allocation and a never-freed misc
// arena. Wired into internal/location's per-location subsystem-data
// block (spec.md §4.9, §6); internal/hashtable's chunk allocation
// (spec.md §4.7) still uses a plain Go allocation rather than
// ArenaAlloc, since its lock-free chunk-append path discards a losing
// CAS candidate on every race and that cost is worth paying against
// the standard allocator, not an arena that never reclaims.
type Memory interface {
	AlignedAlloc(size int) []byte
	ArenaAlloc(size int) []byte
}

// Substrate is the full capability set the adapter consumes from the
// measurement core (spec.md §6). A concrete substrate embeds all of
// these; FakeSubstrate (root package testing.go) provides one for
// tests.
type Substrate interface {
	DefinitionRegistry
	LocationManager
	EventSink
	ThreadingSink
	TaskSink
	LockSink
	AddressResolver
	Gate
	Timer
	Memory
}

// Logger is the adapter-facing logging surface (spec.md §7 propagation
// policy: warnings and bugs go through the substrate's debug/warning
// channel).
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	// Fatalf logs at fatal severity and then invokes the configured
	// abort hook (spec.md §7: pool exhaustion and protocol bugs are
	// fatal).
	Fatalf(format string, args ...any)
}

// Observer records adapter-internal metrics (event counts, overdue
// drains, hash table occupancy). Implementations must be safe for
// concurrent use; methods are called from arbitrary runtime threads
// (spec.md §5).
type Observer interface {
	ObserveEvent(kind string)
	ObserveOverdueDrain()
	ObserveWarning(kind string)
	ObserveBug(kind string)
	// ObserveLatencyNs records the duration of a named operation, in
	// nanoseconds. The only caller today is the overdue coordinator,
	// timing how long a drain holds a location's PreserveOrder mutex
	// (spec.md §4.3.1, §5) — the one latency genuinely worth
	// histogramming on this hot, lock-held path.
	ObserveLatencyNs(kind string, ns uint64)
}
