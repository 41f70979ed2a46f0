package region

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	layout, err := NewExplicitTaskLayout(20, 8)
	require.NoError(t, err)

	cases := []struct {
		region    Handle
		threadNum uint32
		gen       uint32
	}{
		{region: 1, threadNum: 0, gen: 1},
		{region: 42, threadNum: 7, gen: 1000},
		{region: Handle(1<<20 - 1), threadNum: 7, gen: layout.MaxGeneration()},
	}

	for _, c := range cases {
		word := layout.Encode(c.region, c.threadNum, c.gen)
		gotRegion, gotThread, gotGen, isNew := layout.Decode(word)
		require.Equal(t, c.region, gotRegion)
		require.Equal(t, c.threadNum, gotThread)
		require.Equal(t, c.gen, gotGen)
		require.True(t, isNew)
	}
}

func TestDecodeClearedFlagIsNotNewTask(t *testing.T) {
	layout, err := NewExplicitTaskLayout(20, 8)
	require.NoError(t, err)

	word := layout.Encode(5, 2, 9)
	word &^= 1 // substrate task-begin replaced the slot; flag bit cleared

	_, _, _, isNew := layout.Decode(word)
	require.False(t, isNew)
}

func TestNewExplicitTaskLayoutRejectsOverwideTeam(t *testing.T) {
	_, err := NewExplicitTaskLayout(62, 1<<20)
	require.ErrorIs(t, err, ErrLayoutTooWide)
}

func TestCeilLog2(t *testing.T) {
	cases := map[uint32]uint{
		0: 0,
		1: 0,
		2: 1,
		3: 2,
		4: 2,
		5: 3,
		8: 3,
		9: 4,
	}
	for n, want := range cases {
		require.Equal(t, want, ceilLog2(n), "ceilLog2(%d)", n)
	}
}

func TestMaxGenerationCapsAtThirtyTwoBits(t *testing.T) {
	layout, err := NewExplicitTaskLayout(1, 2)
	require.NoError(t, err)
	require.LessOrEqual(t, layout.GenBits, uint(32))
	require.Equal(t, uint32((uint64(1)<<layout.GenBits)-1), layout.MaxGeneration())
}
