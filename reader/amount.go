package reader

// DecompressAmount reverses Bitcoin Core's compressed-amount encoding
// (serialize.h's CTxOutCompressor), used by undo records. Copied from the
// teacher's pkg/utils/utils.go DecompressAmount, which is itself an
// "exact implementation matching Bitcoin Core's serialize.h
// DecompressAmount()" per its own doc comment. This module's connected
// iterator does not read undo files at all (see SPEC_FULL.md §C.1), so
// nothing in the codebase calls this outside of its own codec-parity test;
// it is retained here rather than deleted because it is part of the same
// varint/amount codec family as ReadCoreVarInt and costs nothing to keep
// tested.
func DecompressAmount(x uint64) int64 {
	if x == 0 {
		return 0
	}
	x--
	e := x % 10
	x /= 10
	var n uint64
	if e < 9 {
		d := x%9 + 1
		x /= 9
		n = x*10 + d
		for i := uint64(0); i < e; i++ {
			n *= 10
		}
	} else {
		n = x + 1
		for i := uint64(0); i < 9; i++ {
			n *= 10
		}
	}
	return int64(n)
}
