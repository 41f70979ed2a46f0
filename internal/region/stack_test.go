package region

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackPushPopOrder(t *testing.T) {
	var s Stack
	require.NoError(t, s.Push(1))
	require.NoError(t, s.Push(2))
	require.NoError(t, s.Push(3))
	require.Equal(t, 3, s.Len())

	require.NoError(t, s.PopExpect(3))
	require.NoError(t, s.PopExpect(2))
	require.NoError(t, s.PopExpect(1))
	require.True(t, s.Empty())
}

func TestStackPopExpectMismatch(t *testing.T) {
	var s Stack
	require.NoError(t, s.Push(1))
	err := s.PopExpect(99)
	require.ErrorIs(t, err, ErrStackMismatch)
}

func TestStackPopExpectUnderflow(t *testing.T) {
	var s Stack
	err := s.PopExpect(1)
	require.ErrorIs(t, err, ErrStackUnderflow)
}

func TestStackOverflow(t *testing.T) {
	var s Stack
	for i := 0; i < 255; i++ {
		require.NoError(t, s.Push(Handle(i)))
	}
	err := s.Push(1)
	require.ErrorIs(t, err, ErrStackOverflow)
}

func TestStackResetKeepsBackingArray(t *testing.T) {
	var s Stack
	for i := 0; i < 32; i++ {
		require.NoError(t, s.Push(Handle(i)))
	}
	s.Reset()
	require.True(t, s.Empty())
	require.NoError(t, s.Push(5))
	got, ok := s.Pop()
	require.True(t, ok)
	require.Equal(t, Handle(5), got)
}
