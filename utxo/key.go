// Package utxo implements the streaming UTXO set the connected-block
// iterator (package citer) ingests in stage A and resolves in stage B (spec
// §4.8). Keys are a 128-bit "compressed txid" rather than the raw 32-byte
// txid, matching the space/throughput tradeoff spec §4.8 describes.
//
// The two store implementations are grounded on two different pack repos:
// the in-memory backend's map-of-vectors shape on bsv-blockchain-teranode's
// util/txmap.go (dolthub/swiss + cespare/xxhash), the on-disk backend on
// unclear0122-rosetta-ravencoin's badger wiring, tuned per spec §4.8 for
// large-memtable, no-fsync write throughput.
package utxo

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
)

// CompressedTxID is the UTXO store's key prefix: two independently-seeded
// 64-bit digests of the 32-byte txid, concatenated rather than XORed.
// Spec §4.8 says "128-bit ... two independently-seeded AHash digests ...
// XORed", which taken literally collapses the key back down to 64 bits and
// contradicts the stated width; we resolve this open point (see DESIGN.md)
// by keeping both halves side by side so the key is genuinely 128 bits.
type CompressedTxID [16]byte

var (
	seedA = []byte{0x9e, 0x37, 0x79, 0xb9, 0x7f, 0x4a, 0x7c, 0x15}
	seedB = []byte{0xc2, 0xb2, 0xae, 0x3d, 0x27, 0xd4, 0xeb, 0x4f}
)

// Compress derives txid's compressed form. xxhash has no built-in seed
// parameter in the v1 API this module depends on, so each half hashes the
// seed prepended to the txid rather than passing a seed argument directly;
// the two seeds are fixed and distinct, giving independent digests.
func Compress(txid [32]byte) CompressedTxID {
	var bufA, bufB [40]byte
	copy(bufA[:8], seedA)
	copy(bufA[8:], txid[:])
	copy(bufB[:8], seedB)
	copy(bufB[8:], txid[:])

	var out CompressedTxID
	binary.BigEndian.PutUint64(out[0:8], xxhash.Sum64(bufA[:]))
	binary.BigEndian.PutUint64(out[8:16], xxhash.Sum64(bufB[:]))
	return out
}

// OutPoint identifies a single output: a txid and its index within that
// transaction's output list.
type OutPoint struct {
	Txid  [32]byte
	Index uint32
}

// diskKey returns the 20-byte on-disk key: compressed_txid ‖ output_index,
// per spec §4.8.
func diskKey(txid [32]byte, index uint32) []byte {
	key := make([]byte, 20)
	c := Compress(txid)
	copy(key[:16], c[:])
	binary.BigEndian.PutUint32(key[16:], index)
	return key
}
