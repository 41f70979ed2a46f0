package ompt

import (
	"errors"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewBug("parallel-begin", "encountering task is nil")

	if err.Op != "parallel-begin" {
		t.Errorf("Expected Op=parallel-begin, got %s", err.Op)
	}

	if err.Kind != KindProtocolBug {
		t.Errorf("Expected Kind=KindProtocolBug, got %s", err.Kind)
	}

	expected := "ompt: parallel-begin: encountering task is nil"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestErrorWithLocation(t *testing.T) {
	err := NewClockAnomaly("sync-region-end", 7, "timestamp earlier than last written")

	if err.Location != 7 {
		t.Errorf("Expected Location=7, got %d", err.Location)
	}

	expected := "ompt: sync-region-end: timestamp earlier than last written (location=7)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestWrapError(t *testing.T) {
	inner := errors.New("hash table chunk allocation returned nil")
	err := WrapError("codeptr-resolve", KindPoolExhaustion, inner)

	if err.Kind != KindPoolExhaustion {
		t.Errorf("Expected Kind=KindPoolExhaustion, got %s", err.Kind)
	}

	if !errors.Is(err, inner) {
		t.Error("Expected wrapped error to satisfy errors.Is for the inner cause")
	}
}

func TestWrapErrorPreservesStructuredCause(t *testing.T) {
	inner := NewUnsupported("sync-region-begin", "reduction sync region")
	err := WrapError("dispatch", KindUnsupportedFeature, inner)

	if err.Location != inner.Location {
		t.Errorf("expected wrapped error to carry inner's location")
	}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped *Error cause")
	}
}

func TestWrapErrorNilIsNil(t *testing.T) {
	if WrapError("op", KindClockAnomaly, nil) != nil {
		t.Error("WrapError(nil) should return nil")
	}
}

func TestIsKind(t *testing.T) {
	err := NewUnsupported("sync-region-begin", "teams construct")

	if !IsKind(err, KindUnsupportedFeature) {
		t.Error("IsKind should return true for matching kind")
	}

	if IsKind(err, KindProtocolBug) {
		t.Error("IsKind should return false for non-matching kind")
	}

	if IsKind(nil, KindUnsupportedFeature) {
		t.Error("IsKind should return false for nil error")
	}
}

func TestKindFatal(t *testing.T) {
	fatal := []Kind{KindProtocolBug, KindPoolExhaustion}
	for _, k := range fatal {
		if !k.Fatal() {
			t.Errorf("expected %s to be fatal", k)
		}
	}

	nonFatal := []Kind{KindUnsupportedFeature, KindClockAnomaly, KindRuntimeMisbehavior}
	for _, k := range nonFatal {
		if k.Fatal() {
			t.Errorf("expected %s to not be fatal", k)
		}
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	a := NewBug("op-a", "msg a")
	b := NewBug("op-b", "msg b")

	if !errors.Is(a, b) {
		t.Error("two protocol-bug errors should satisfy errors.Is regardless of message")
	}

	c := NewUnsupported("op-c", "msg c")
	if errors.Is(a, c) {
		t.Error("errors of different kinds should not satisfy errors.Is")
	}
}
