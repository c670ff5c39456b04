package utxo

import (
	"encoding/binary"
	"os"

	"github.com/dgraph-io/badger/v2"
	"github.com/dgraph-io/badger/v2/options"

	"chainreader/chainerr"
)

// diskStore is the on-disk UTXO backend: an embedded LSM store (badger,
// carried in from unclear0122-rosetta-ravencoin) keyed by
// compressed_txid ‖ output_index, tuned per spec §4.8 for write throughput
// rather than durability — this store is rebuilt from scratch on every run,
// so there is nothing worth fsyncing.
type diskStore struct {
	db  *badger.DB
	dir string
}

// NewDiskStore opens (creating if necessary) an on-disk UTXO store rooted
// at dir. Spec §4.8 asks for "a large memtable, plain-table format, and WAL
// disabled"; badger has no plain-table mode, so this is approximated with a
// large memtable, memory-mapped table loading, and SyncWrites disabled
// (documented in DESIGN.md as a justified substitution — no real-table
// format selection exists in the pack's embedded-store options).
func NewDiskStore(dir string) (Store, error) {
	opts := badger.DefaultOptions(dir).
		WithSyncWrites(false).
		WithTableLoadingMode(options.MemoryMap).
		WithValueLogLoadingMode(options.MemoryMap).
		WithMemTableSize(256 << 20).
		WithNumMemtables(4).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, chainerr.IOf("utxo.NewDiskStore", err)
	}
	return &diskStore{db: db, dir: dir}, nil
}

func encodeOutput(o Output) []byte {
	buf := make([]byte, 8+4+len(o.PkScript))
	binary.BigEndian.PutUint64(buf[:8], uint64(o.Value))
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(o.PkScript)))
	copy(buf[12:], o.PkScript)
	return buf
}

func decodeOutput(b []byte) (Output, error) {
	if len(b) < 12 {
		return Output{}, chainerr.Corruptf("utxo.decodeOutput", nil)
	}
	value := int64(binary.BigEndian.Uint64(b[:8]))
	n := binary.BigEndian.Uint32(b[8:12])
	if uint32(len(b)-12) != n {
		return Output{}, chainerr.Corruptf("utxo.decodeOutput", nil)
	}
	pkScript := make([]byte, n)
	copy(pkScript, b[12:])
	return Output{Value: value, PkScript: pkScript}, nil
}

func (s *diskStore) IngestBlockOutputs(txs []TxOutputs) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, tx := range txs {
		for i, o := range tx.Outputs {
			key := diskKey(tx.Txid, uint32(i))
			if err := wb.Set(key, encodeOutput(o)); err != nil {
				return chainerr.IOf("utxo.IngestBlockOutputs", err)
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return chainerr.IOf("utxo.IngestBlockOutputs", err)
	}
	return nil
}

func (s *diskStore) SpendInputs(outpoints []OutPoint) ([]Output, error) {
	out := make([]Output, len(outpoints))
	err := s.db.Update(func(txn *badger.Txn) error {
		for i, op := range outpoints {
			key := diskKey(op.Txid, op.Index)
			item, err := txn.Get(key)
			if err == badger.ErrKeyNotFound {
				// The disk backend has no separate output-count bookkeeping
				// to tell "index exceeds output count" apart from "already
				// spent" or "unknown txid" — any of the three looks like a
				// missing key here, so all of them get the same warning.
				log.Warnf("utxo: input %x:%d has no matching unspent output", op.Txid, op.Index)
				return chainerr.Corruptf("utxo.SpendInputs", nil)
			}
			if err != nil {
				return chainerr.IOf("utxo.SpendInputs", err)
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return chainerr.IOf("utxo.SpendInputs", err)
			}
			decoded, err := decodeOutput(value)
			if err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return chainerr.IOf("utxo.SpendInputs", err)
			}
			out[i] = decoded
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *diskStore) Len() int {
	count := 0
	_ = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count
}

// Close shuts down badger and removes the temporary UTXO directory, per
// spec §4.8's drop semantics for the on-disk variant.
func (s *diskStore) Close() error {
	if err := s.db.Close(); err != nil {
		return chainerr.IOf("utxo.Close", err)
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return chainerr.IOf("utxo.Close", err)
	}
	return nil
}
