package logging

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFatalfInvokesAbortHook(t *testing.T) {
	var aborted bool
	logger := NewLogger(&Config{
		Level:  LevelDebug,
		Output: os.Stderr,
		Abort:  func() { aborted = true },
	})

	logger.Fatalf("pool exhausted: %s", "task")

	require.True(t, aborted, "Fatalf must invoke the configured abort hook instead of exiting")
}

func TestSetAbortOverridesHook(t *testing.T) {
	logger := NewLogger(DefaultConfig())

	var calls int
	logger.SetAbort(func() { calls++ })
	logger.Fatalf("bug")
	logger.Fatalf("bug again")

	require.Equal(t, 2, calls)
}

func TestDefaultLoggerIsSingleton(t *testing.T) {
	a := Default()
	b := Default()
	require.Same(t, a, b)
}

func TestWithAddsStructuredFields(t *testing.T) {
	logger := NewLogger(DefaultConfig())
	scoped := logger.With("location_id", 3)
	require.NotNil(t, scoped)
	scoped.Debugf("drained overdue events")
}
