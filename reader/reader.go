// Package reader implements the binary decoding primitives this module
// needs on top of Bitcoin Core's serialization format: little-endian fixed
// width integers, 32-byte hashes, length-prefixed byte vectors, and the two
// distinct varint encodings Bitcoin Core uses (wire's CompactSize for
// transactions/blocks, and the 7-bit-group "Core varint" used only inside
// blocks/index and indexes/txindex records).
//
// Compound decoding of full blocks and transactions is delegated to
// github.com/btcsuite/btcd/wire, which already implements Bitcoin's
// consensus serialization; this package supplies the primitives wire does
// not (the Core varint) and wraps failures into *chainerr.Error.
package reader

import (
	"encoding/binary"
	"io"

	"chainreader/chainerr"
)

// Reader decodes a Bitcoin-serialized stream from any io.Reader.
type Reader struct {
	r io.Reader
}

// New wraps r for decoding.
func New(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (r *Reader) fill(buf []byte) error {
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return chainerr.Corruptf("reader.fill", err)
	}
	return nil
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	var b [1]byte
	if err := r.fill(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint32LE reads a little-endian uint32.
func (r *Reader) ReadUint32LE() (uint32, error) {
	var b [4]byte
	if err := r.fill(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadUint64LE reads a little-endian uint64.
func (r *Reader) ReadUint64LE() (uint64, error) {
	var b [8]byte
	if err := r.fill(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// ReadHash reads a 32-byte digest, leaving byte order exactly as stored
// (callers reverse for display where Bitcoin's big-endian-hex convention
// applies).
func (r *Reader) ReadHash() ([32]byte, error) {
	var h [32]byte
	if err := r.fill(h[:]); err != nil {
		return h, err
	}
	return h, nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := r.fill(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadCompactSize reads Bitcoin's wire CompactSize varint, the encoding
// used inside transactions and blocks (tx/input/output counts, script and
// witness lengths). This is distinct from ReadCoreVarInt below.
func (r *Reader) ReadCompactSize() (uint64, error) {
	b, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}
	switch b {
	case 0xfd:
		var v [2]byte
		if err := r.fill(v[:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(v[:])), nil
	case 0xfe:
		var v [4]byte
		if err := r.fill(v[:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(v[:])), nil
	case 0xff:
		var v [8]byte
		if err := r.fill(v[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(v[:]), nil
	default:
		return uint64(b), nil
	}
}

// ReadCoreVarInt reads Bitcoin Core's other varint format (serialize.h's
// CVarInt, called "Core varint" in spec §4.1): successive 7-bit big-endian
// groups, where a byte with the top bit set means "more follows, and add 1
// to the accumulator before consuming the next byte." This is the encoding
// used inside blocks/index and indexes/txindex values, never inside block
// or transaction payloads.
func (r *Reader) ReadCoreVarInt() (uint64, error) {
	var n uint64
	for {
		b, err := r.ReadUint8()
		if err != nil {
			return 0, err
		}
		if n > (1<<63)>>7 {
			return 0, chainerr.Corruptf("reader.ReadCoreVarInt", io.ErrUnexpectedEOF)
		}
		n = (n << 7) | uint64(b&0x7f)
		if b&0x80 == 0 {
			return n, nil
		}
		n++
	}
}

// ReadCoreVarInt32 reads a Core varint known to fit in an int32 (block
// index version/height fields), per spec §4.3.
func (r *Reader) ReadCoreVarInt32() (int32, error) {
	v, err := r.ReadCoreVarInt()
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}
