package hashtable

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// MixKey combines an address-shaped key with a small integer kind tag
// into the 64-bit hash the bucket index is derived from (spec.md §4.7:
// "Key hash combines both fields through a ... mixing hash"). The pair
// is packed into 12 bytes and run through xxhash rather than XORed or
// concatenated by hand, so that nearby codeptrs (common across inlined
// call sites) and nearby wait-ids don't cluster into the same bucket.
func MixKey(addr uint64, kind int32) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[0:8], addr)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(kind))
	return xxhash.Sum64(buf[:])
}
