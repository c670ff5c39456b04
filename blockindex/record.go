// Package blockindex loads Bitcoin Core's blocks/index LevelDB database
// into an in-memory, read-only directory of every known block (spec §4.3).
// It is grounded on two sources: the teacher's block-header decode path
// (pkg/parser/block.go's use of wire.BlockHeader) for the 80-byte header
// tail of every record, and github.com/syndtr/goleveldb (carried in from
// toole-brendan-shell, a full btcd-style node that — like Bitcoin Core
// itself — keeps this exact directory in a classic LevelDB instance) for
// opening and iterating the store.
package blockindex

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"chainreader/chainerr"
	"chainreader/reader"
)

// Status is Bitcoin Core's per-block validation/data-availability bitfield
// (validation.h's BlockStatus). The low three bits encode a validity
// level (0..5); bits 3 and 4 record data/undo availability independent of
// validity.
type Status uint32

const (
	validMask      Status = 0x07
	validScripts   Status = 5
	haveData       Status = 1 << 3
	haveUndo       Status = 1 << 4
	failedMask     Status = 0x60
)

// HasData reports whether the block payload has been downloaded.
func (s Status) HasData() bool { return s&haveData != 0 }

// HasUndo reports whether the undo data has been written.
func (s Status) HasUndo() bool { return s&haveUndo != 0 }

// FullyValid reports whether the block has passed every validation stage
// spec §4.3 calls out (header-valid through scripts-valid) and has not
// been marked failed.
func (s Status) FullyValid() bool {
	return s&validMask == validScripts && s&failedMask == 0
}

// noPos is the sentinel used for an absent file_no/data_pos/undo_pos, per
// spec §3 ("-1 if no file association").
const noPos = -1

// Record is one block index entry: every field spec §3 names.
type Record struct {
	Hash     chainhash.Hash
	Height   int32
	Status   Status
	TxCount  uint32
	FileNo   int32
	DataPos  int64
	UndoPos  int64
	Header   wire.BlockHeader
}

// decodeRecord decodes one blocks/index value per spec §4.3: version,
// height, status, n_tx (all Core varints), then file_no/data_pos (present
// only when HasData), then undo_pos (present only when HasUndo), then the
// fixed 80-byte header.
func decodeRecord(hash chainhash.Hash, value []byte) (Record, error) {
	r := reader.New(bytes.NewReader(value))

	if _, err := r.ReadCoreVarInt32(); err != nil { // version, unused by this module
		return Record{}, chainerr.Corruptf("blockindex.decodeRecord", err)
	}
	height, err := r.ReadCoreVarInt32()
	if err != nil {
		return Record{}, chainerr.Corruptf("blockindex.decodeRecord", err)
	}
	statusV, err := r.ReadCoreVarInt()
	if err != nil {
		return Record{}, chainerr.Corruptf("blockindex.decodeRecord", err)
	}
	status := Status(statusV)
	txCountV, err := r.ReadCoreVarInt()
	if err != nil {
		return Record{}, chainerr.Corruptf("blockindex.decodeRecord", err)
	}

	rec := Record{
		Hash:    hash,
		Height:  height,
		Status:  status,
		TxCount: uint32(txCountV),
		FileNo:  noPos,
		DataPos: noPos,
		UndoPos: noPos,
	}

	if status.HasData() {
		fileNo, err := r.ReadCoreVarInt32()
		if err != nil {
			return Record{}, chainerr.Corruptf("blockindex.decodeRecord", err)
		}
		dataPos, err := r.ReadCoreVarInt()
		if err != nil {
			return Record{}, chainerr.Corruptf("blockindex.decodeRecord", err)
		}
		rec.FileNo = fileNo
		rec.DataPos = int64(dataPos)
	}
	if status.HasUndo() {
		undoPos, err := r.ReadCoreVarInt()
		if err != nil {
			return Record{}, chainerr.Corruptf("blockindex.decodeRecord", err)
		}
		rec.UndoPos = int64(undoPos)
	}

	headerBytes, err := r.ReadBytes(80)
	if err != nil {
		return Record{}, chainerr.Corruptf("blockindex.decodeRecord", err)
	}
	if err := rec.Header.Deserialize(bytes.NewReader(headerBytes)); err != nil {
		return Record{}, chainerr.Corruptf("blockindex.decodeRecord", err)
	}
	return rec, nil
}
