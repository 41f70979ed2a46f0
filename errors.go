package ompt

import (
	"errors"
	"fmt"
)

// Kind classifies an adapter error into the categories spec.md §7
// distinguishes by propagation policy: protocol bugs and pool
// exhaustion are fatal, the rest are logged and the triggering event
// is skipped or clipped.
type Kind string

const (
	// KindProtocolBug is an invariant violation: a callback arrived with
	// state the protocol guarantees should never occur (nil encountering
	// task, zero team size, a stack underflow, a refcount that went
	// negative). Fatal; the measurement is unsafe to continue.
	KindProtocolBug Kind = "protocol bug"

	// KindUnsupportedFeature is a construct this adapter does not
	// implement by design (league events, reduction sync, dispatch
	// chunks, atomic mutexes). The triggering event is skipped after a
	// single warning; measurement continues.
	KindUnsupportedFeature Kind = "unsupported feature"

	// KindClockAnomaly is a timestamp that would violate the
	// nondecreasing-order guarantee on some location (spec.md §5, §8
	// invariant 3): a new event's timestamp earlier than the last one
	// written there, or an end time before its own start time. Skipped
	// or clipped to the last-written timestamp; warned once.
	KindClockAnomaly Kind = "clock anomaly"

	// KindRuntimeMisbehavior is the runtime reporting an event shape the
	// ABI contract rules out (e.g. a test-lock callback reported through
	// the plain mutex_lock path). Detected once and the path is disabled
	// with a warning rather than retried per-event.
	KindRuntimeMisbehavior Kind = "runtime misbehavior"

	// KindPoolExhaustion is a failed aligned allocation for a task,
	// parallel-region, or hash-table chunk. Treated as fatal (spec.md
	// §7: "aligned-malloc returning null").
	KindPoolExhaustion Kind = "pool exhaustion"
)

// Fatal reports whether errors of this kind are unrecoverable per
// spec.md §7's propagation policy.
func (k Kind) Fatal() bool {
	return k == KindProtocolBug || k == KindPoolExhaustion
}

// Error is the adapter's structured error type: every error this
// module returns or logs through is either an *Error or wraps one.
type Error struct {
	// Op names the protocol step that failed (e.g. "parallel-begin",
	// "implicit-task-end", "mutex-released").
	Op string

	// Location is the CPU location the failing callback fired on, 0 if
	// not applicable (e.g. a pool-exhaustion error has no single
	// location to blame).
	Location uint32

	Kind  Kind
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op == "" {
		return fmt.Sprintf("ompt: %s", msg)
	}
	if e.Location != 0 {
		return fmt.Sprintf("ompt: %s: %s (location=%d)", e.Op, msg, e.Location)
	}
	return fmt.Sprintf("ompt: %s: %s", e.Op, msg)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is reports equality by Kind, so errors.Is holds between any two
// *Error values of the same Kind regardless of Op or Msg. To check an
// error against a bare Kind, use IsKind.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == te.Kind
}

// NewBug builds a fatal protocol-bug error (spec.md §7).
func NewBug(op, msg string) *Error {
	return &Error{Op: op, Kind: KindProtocolBug, Msg: msg}
}

// NewUnsupported builds an unsupported-feature error for a construct
// this adapter skips by design (spec.md §1 Non-goals, §7).
func NewUnsupported(op, msg string) *Error {
	return &Error{Op: op, Kind: KindUnsupportedFeature, Msg: msg}
}

// NewClockAnomaly builds a clock-ordering error for a timestamp that
// would violate the per-location nondecreasing guarantee (spec.md §5,
// §7, §8 invariant 3).
func NewClockAnomaly(op string, location uint32, msg string) *Error {
	return &Error{Op: op, Location: location, Kind: KindClockAnomaly, Msg: msg}
}

// NewRuntimeMisbehavior builds an error for a runtime-reported event
// shape the ABI contract rules out (spec.md §7).
func NewRuntimeMisbehavior(op, msg string) *Error {
	return &Error{Op: op, Kind: KindRuntimeMisbehavior, Msg: msg}
}

// NewPoolExhaustion builds a fatal pool-exhaustion error (spec.md §7).
func NewPoolExhaustion(op, msg string) *Error {
	return &Error{Op: op, Kind: KindPoolExhaustion, Msg: msg}
}

// WrapError attaches op and kind to an existing error, preserving it
// as the Unwrap cause. A nil inner error returns nil, matching the
// usual Go convention for wrap-on-failure helpers.
func WrapError(op string, kind Kind, inner error) *Error {
	if inner == nil {
		return nil
	}
	if oe, ok := inner.(*Error); ok {
		return &Error{Op: op, Location: oe.Location, Kind: kind, Msg: oe.Msg, Inner: oe}
	}
	return &Error{Op: op, Kind: kind, Msg: inner.Error(), Inner: inner}
}

// IsKind reports whether err is, or wraps, an *Error of the given
// kind.
func IsKind(err error, kind Kind) bool {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}
