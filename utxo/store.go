package utxo

// Output is the part of a transaction output the connected iterator needs
// to reconstruct a spent input: the value and the locking script. It is
// intentionally smaller than wire.TxOut's decoded form would be, since
// nothing downstream needs anything else once an input is connected.
type Output struct {
	Value    int64
	PkScript []byte
}

// TxOutputs is one transaction's worth of outputs to ingest in stage A,
// keyed by the owning txid.
type TxOutputs struct {
	Txid    [32]byte
	Outputs []Output
}

// Store is the UTXO store's capability surface. Stage A calls
// IngestBlockOutputs once per block (in height order); stage B calls
// SpendInputs to batch-resolve and delete the outputs a block's
// non-coinbase inputs consume. Implementations must be safe for one stage-A
// and one stage-B caller operating concurrently (spec §4.8's "shared mutable,
// guarded by its own lock, may shard for throughput").
type Store interface {
	// IngestBlockOutputs inserts every output of every transaction in txs
	// under its (compressed_txid, output_index) key.
	IngestBlockOutputs(txs []TxOutputs) error

	// SpendInputs looks up and deletes every outpoint in outpoints, in
	// order, returning the resolved outputs in the same order. A missing
	// outpoint is a hard error: the UTXO stream is no longer trustworthy
	// once a gap appears (spec §4.8).
	SpendInputs(outpoints []OutPoint) ([]Output, error)

	// Len reports the live key count, i.e. the number of un-spent outputs
	// currently held. Used by the shrinkage invariant in tests and by
	// diagnostics; not on any iterator hot path.
	Len() int

	// Close releases any resources the backend holds (temp directories,
	// open file handles). Safe to call once iteration completes or the
	// iterator is dropped early.
	Close() error
}
