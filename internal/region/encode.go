package region

import "errors"

// ErrLayoutTooWide is a protocol bug (spec.md §3 invariant: "team_size
// x max_explicit_tasks x nbits_region must fit in 63 bits").
var ErrLayoutTooWide = errors.New("region: explicit-task encoding does not fit in 63 bits for this team size/region-handle width")

// ErrGenerationOverflow describes a creator thread's generation counter
// exhausting the bits the layout reserved for it (spec.md §4.4).
// Dispatcher.TaskCreate reports that case with its own protocol-bug
// error and does not return this value.
var ErrGenerationOverflow = errors.New("region: explicit-task generation number overflowed its encoding width")

// ExplicitTaskLayout packs a region handle, a thread-num, and a
// per-region generation number into one 64-bit word so explicit-task
// creation never allocates on the (possibly different) thread that
// will free it (spec.md §4.4):
//
//	[ region_handle : RegionBits ][ thread_num : ParallelismBits ][ gen_number : GenBits ][ new_task_flag : 1 ]
type ExplicitTaskLayout struct {
	RegionBits      uint
	ParallelismBits uint
	GenBits         uint

	genShift    uint
	threadShift uint
	regionShift uint

	genMask    uint64
	threadMask uint64
	regionMask uint64
}

// NewExplicitTaskLayout computes the bit-packing parameters for a
// region whose team has teamSize members, given the substrate's
// process-wide region-handle bit width (spec.md §4.4, §6:
// DefinitionRegistry.RegionHandleBits).
func NewExplicitTaskLayout(regionHandleBits uint, teamSize uint32) (ExplicitTaskLayout, error) {
	parallelismBits := ceilLog2(teamSize)

	// One bit is reserved for the new-task flag (spec.md §4.4 layout
	// diagram, LSB).
	if regionHandleBits+parallelismBits >= 63 {
		return ExplicitTaskLayout{}, ErrLayoutTooWide
	}

	genBits := uint(63) - regionHandleBits - parallelismBits
	if genBits > 32 {
		genBits = 32
	}

	l := ExplicitTaskLayout{
		RegionBits:      regionHandleBits,
		ParallelismBits: parallelismBits,
		GenBits:         genBits,
	}
	l.genShift = 1
	l.threadShift = l.genShift + genBits
	l.regionShift = l.threadShift + parallelismBits

	l.genMask = mask(genBits)
	l.threadMask = mask(parallelismBits)
	l.regionMask = mask(regionHandleBits)

	return l, nil
}

// ceilLog2 returns the number of bits needed to represent values
// 0..n-1 (spec.md §4.4: "nbits_parallelism = ceil(log2(team_size))").
func ceilLog2(n uint32) uint {
	if n <= 1 {
		return 0
	}
	bits := uint(0)
	v := n - 1
	for v > 0 {
		bits++
		v >>= 1
	}
	return bits
}

func mask(bits uint) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}

// Encode packs region/threadNum/gen with the new-task flag set
// (spec.md §4.4 "encode the three fields with the flag set").
func (l ExplicitTaskLayout) Encode(region Handle, threadNum, gen uint32) uint64 {
	var word uint64 = 1 // new_task_flag
	word |= (uint64(gen) & l.genMask) << l.genShift
	word |= (uint64(threadNum) & l.threadMask) << l.threadShift
	word |= (uint64(region) & l.regionMask) << l.regionShift
	return word
}

// Decode unpacks a word produced by Encode. isNewTask reports whether
// the flag bit is still set; once a task-schedule callback has
// replaced the opaque slot with a real pointer, the flag bit is zero
// and the word must not be decoded again (spec.md §4.4).
func (l ExplicitTaskLayout) Decode(word uint64) (region Handle, threadNum, gen uint32, isNewTask bool) {
	isNewTask = word&1 != 0
	gen = uint32((word >> l.genShift) & l.genMask)
	threadNum = uint32((word >> l.threadShift) & l.threadMask)
	region = Handle((word >> l.regionShift) & l.regionMask)
	return
}

// MaxGeneration returns the largest generation number this layout can
// encode, used to detect overflow at task-create (spec.md §4.4).
func (l ExplicitTaskLayout) MaxGeneration() uint32 {
	return uint32(l.genMask)
}
