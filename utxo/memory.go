package utxo

import (
	"sync"

	"github.com/dolthub/swiss"

	"chainreader/chainerr"
)

// memoryStore is the in-memory UTXO backend: a swiss-table map from
// compressed txid to a small slice of *Output indexed by output index,
// following bsv-blockchain-teranode's util/txmap.go shape. A nil slot marks
// an already-spent output; once every slot in a txid's slice is nil the
// whole entry is removed (lazy garbage collection, spec §4.8).
type memoryStore struct {
	mu   sync.Mutex
	live int
	m    *swiss.Map[CompressedTxID, []*Output]
}

// NewMemoryStore returns the in-memory UTXO backend, requiring roughly
// linear memory in the live UTXO set size (spec §4.8: "~32 GB peak for a
// mainnet-scale chain").
func NewMemoryStore() Store {
	return &memoryStore{m: swiss.NewMap[CompressedTxID, []*Output](1 << 20)}
}

func (s *memoryStore) IngestBlockOutputs(txs []TxOutputs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range txs {
		if len(tx.Outputs) == 0 {
			continue
		}
		key := Compress(tx.Txid)
		slots := make([]*Output, len(tx.Outputs))
		for i := range tx.Outputs {
			o := tx.Outputs[i]
			slots[i] = &o
			s.live++
		}
		s.m.Put(key, slots)
	}
	return nil
}

func (s *memoryStore) SpendInputs(outpoints []OutPoint) ([]Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Output, len(outpoints))
	for i, op := range outpoints {
		key := Compress(op.Txid)
		slots, ok := s.m.Get(key)
		if !ok {
			return nil, chainerr.Corruptf("utxo.SpendInputs", nil)
		}
		if int(op.Index) >= len(slots) {
			log.Warnf("utxo: input %x:%d exceeds its transaction's output count (%d)",
				op.Txid, op.Index, len(slots))
			return nil, chainerr.Corruptf("utxo.SpendInputs", nil)
		}
		if slots[op.Index] == nil {
			return nil, chainerr.Corruptf("utxo.SpendInputs", nil)
		}
		out[i] = *slots[op.Index]
		slots[op.Index] = nil
		s.live--

		empty := true
		for _, slot := range slots {
			if slot != nil {
				empty = false
				break
			}
		}
		if empty {
			s.m.Delete(key)
		}
	}
	return out, nil
}

func (s *memoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

func (s *memoryStore) Close() error { return nil }
