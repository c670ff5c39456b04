// Package txindex resolves a transaction id to its (file, offset) location
// by opening Bitcoin Core's optional indexes/txindex LevelDB database (spec
// §4.5). Grounded the same way as package blockindex: real Bitcoin Core
// keeps this directory in LevelDB, so we open it with
// github.com/syndtr/goleveldb (carried in from toole-brendan-shell) rather
// than inventing a format-specific reader.
package txindex

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"chainreader/blockindex"
	"chainreader/chainerr"
	"chainreader/reader"
)

const keyPrefix = 't'

// genesisTxid is the mainnet genesis coinbase transaction id, which
// Bitcoin Core intentionally omits from txindex (spec §3/§4.5).
var genesisTxid = mustHash("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")

// GenesisTxid exports the same constant for the facade package, which
// special-cases genesis transaction lookups the same way (by reading block
// 0 directly) since txindex never carries a record for it.
var GenesisTxid = genesisTxid

func mustHash(s string) chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return *h
}

// Record is a resolved transaction location: which blk<N>.dat file, the
// containing block's payload offset in that file, and this transaction's
// byte offset within the block (measured from the end of the 80-byte
// header), per spec §4.5.
type Record struct {
	FileNo       int32
	BlockDataPos int64
	TxOffset     int64
}

// TxIndex is the facade-facing interface so the no-op sentinel and the
// real LevelDB-backed index can be swapped transparently.
type TxIndex interface {
	GetRecord(txid chainhash.Hash) (Record, error)
	GetBlockHeight(txid chainhash.Hash) (int32, error)
	Close() error
}

// noOp is returned when the facade was constructed with tx-index disabled
// or the directory does not exist; every operation fails with NotOpen, per
// spec §4.5.
type noOp struct{}

func (noOp) GetRecord(chainhash.Hash) (Record, error) {
	return Record{}, chainerr.NotOpenf("txindex.GetRecord", nil)
}
func (noOp) GetBlockHeight(chainhash.Hash) (int32, error) {
	return 0, chainerr.NotOpenf("txindex.GetBlockHeight", nil)
}
func (noOp) Close() error { return nil }

// NoOp returns the no-op sentinel.
func NoOp() TxIndex { return noOp{} }

// index is the real, LevelDB-backed tx index.
type index struct {
	db        *leveldb.DB
	heightOf  map[blockindex.FileOffset]int32
}

// Open opens path if enabled is true and the directory exists; otherwise
// it returns the no-op sentinel (never an error), per spec §4.5/§4.6. idx
// supplies the (file_no, block_data_pos) -> height table built once from
// the already-loaded block index.
func Open(path string, enabled bool, idx *blockindex.Index) (TxIndex, error) {
	if !enabled {
		return NoOp(), nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return NoOp(), nil
		}
		return nil, chainerr.IOf("txindex.Open", err)
	}

	db, err := leveldb.OpenFile(filepath.Clean(path), &opt.Options{ErrorIfMissing: true})
	if err != nil {
		return nil, chainerr.Configf("txindex.Open", err)
	}
	return &index{db: db, heightOf: idx.HeightToFileOffset()}, nil
}

func (x *index) Close() error {
	if err := x.db.Close(); err != nil {
		return chainerr.IOf("txindex.Close", err)
	}
	return nil
}

// GetRecord resolves txid's storage location.
func (x *index) GetRecord(txid chainhash.Hash) (Record, error) {
	key := make([]byte, 0, 33)
	key = append(key, keyPrefix)
	key = append(key, txid[:]...)

	value, err := x.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return Record{}, chainerr.NotFoundf("txindex.GetRecord", err)
		}
		return Record{}, chainerr.IOf("txindex.GetRecord", err)
	}

	r := reader.New(bytes.NewReader(value))
	fileNo, err := r.ReadCoreVarInt32()
	if err != nil {
		return Record{}, chainerr.Corruptf("txindex.GetRecord", err)
	}
	blockDataPos, err := r.ReadCoreVarInt()
	if err != nil {
		return Record{}, chainerr.Corruptf("txindex.GetRecord", err)
	}
	txOffset, err := r.ReadCoreVarInt()
	if err != nil {
		return Record{}, chainerr.Corruptf("txindex.GetRecord", err)
	}
	return Record{FileNo: fileNo, BlockDataPos: int64(blockDataPos), TxOffset: int64(txOffset)}, nil
}

// GetBlockHeight resolves txid to the height of the block containing it.
// The genesis coinbase is special-cased to height 0 since Bitcoin Core
// never indexes it (spec §4.5).
func (x *index) GetBlockHeight(txid chainhash.Hash) (int32, error) {
	if txid == genesisTxid {
		return 0, nil
	}
	rec, err := x.GetRecord(txid)
	if err != nil {
		return 0, err
	}
	h, ok := x.heightOf[blockindex.FileOffset{FileNo: rec.FileNo, DataPos: rec.BlockDataPos}]
	if !ok {
		return 0, chainerr.NotFoundf("txindex.GetBlockHeight", nil)
	}
	return h, nil
}
