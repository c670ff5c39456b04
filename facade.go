// Package chainreader provides read-only random access and streaming
// iteration over a locally synchronized Bitcoin Core data directory: block
// index lookups, blk*.dat decoding, transaction-index resolution, script
// classification, and a connected-block iterator that rewrites every input
// into the exact output it spends (spec §1/§4.6).
package chainreader

import (
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"chainreader/blkfile"
	"chainreader/blockindex"
	"chainreader/chainerr"
	"chainreader/citer"
	"chainreader/iter"
	"chainreader/shapes"
	"chainreader/txindex"
	"chainreader/utxo"
)

// UTXOBackend selects the connected-block iterator's UTXO store
// implementation (spec §4.8).
type UTXOBackend int

const (
	// UTXOBackendMemory keeps the live UTXO set in process memory. This is
	// the default: spec §9's Open Question about which backend defaults
	// leaves the choice to the rewrite, and an embedded library with no
	// deployment story of its own should not default to managing a
	// temporary directory on disk unless asked to.
	UTXOBackendMemory UTXOBackend = iota
	// UTXOBackendDisk spills the live UTXO set to a temporary on-disk LSM
	// store, trading peak memory for throughput (spec §4.8).
	UTXOBackendDisk
)

// Config configures Explorer construction. The zero value is usable: it
// leaves tx-index disabled, defaults Network to mainnet, selects the in-memory
// UTXO backend, and lets Workers default to the machine's hardware
// parallelism (spec §A.3).
type Config struct {
	// TxIndex enables opening <datadir>/indexes/txindex. When false, or
	// when the directory does not exist, transaction lookups and the
	// connected (non-streaming) per-tx/per-block paths fail with NotOpen.
	TxIndex bool

	// Network carries forward REDESIGN FLAG "expose mainnet as an
	// explicit field" (spec §9): it defaults to &chaincfg.MainNetParams
	// when left nil.
	Network *chaincfg.Params

	// UTXOBackend selects the connected-block iterator's UTXO store.
	UTXOBackend UTXOBackend

	// Workers sizes every iterator's worker pool. <= 0 selects
	// runtime.GOMAXPROCS(0).
	Workers int
}

// Explorer is the facade over one data directory: the block index, the
// blk*.dat file catalog, and (optionally) the transaction index, all
// immutable after construction and safe for concurrent read-only use
// (spec §5 "Shared resources").
type Explorer struct {
	net     *chaincfg.Params
	idx     *blockindex.Index
	files   *blkfile.Store
	tx      txindex.TxIndex
	backend UTXOBackend
	workers int
}

// Open builds an Explorer over dataDir: the block index from
// <dataDir>/blocks/index, the block file store from <dataDir>/blocks, and
// either the transaction index from <dataDir>/indexes/txindex or the
// no-op sentinel, per spec §4.6.
func Open(dataDir string, cfg Config) (*Explorer, error) {
	if cfg.Network == nil {
		cfg.Network = &chaincfg.MainNetParams
	}

	idx, err := blockindex.Open(filepath.Join(dataDir, "blocks", "index"))
	if err != nil {
		return nil, err
	}
	files, err := blkfile.Open(filepath.Join(dataDir, "blocks"))
	if err != nil {
		return nil, err
	}
	tx, err := txindex.Open(filepath.Join(dataDir, "indexes", "txindex"), cfg.TxIndex, idx)
	if err != nil {
		return nil, err
	}

	log.Debugf("chainreader: opened %s (max_height=%d tx_index=%v backend=%v)",
		dataDir, idx.MaxHeight(), cfg.TxIndex, cfg.UTXOBackend)

	return &Explorer{
		net:     cfg.Network,
		idx:     idx,
		files:   files,
		tx:      tx,
		backend: cfg.UTXOBackend,
		workers: cfg.Workers,
	}, nil
}

// Close releases the transaction index's underlying handle, if open.
func (e *Explorer) Close() error {
	return e.tx.Close()
}

// MaxHeight returns the number of known headers.
func (e *Explorer) MaxHeight() int32 { return e.idx.MaxHeight() }

// BlockCount returns the contiguous downloaded prefix length (spec §4.6).
func (e *Explorer) BlockCount() int32 { return e.idx.BlockCount() }

// Header returns the block-index record at height h.
func (e *Explorer) Header(h int32) (blockindex.Record, error) { return e.idx.Header(h) }

// HashAt returns the block hash at height h.
func (e *Explorer) HashAt(h int32) (chainhash.Hash, error) { return e.idx.HashAt(h) }

// HeightOf returns the height of the given block hash.
func (e *Explorer) HeightOf(hash chainhash.Hash) (int32, error) { return e.idx.HeightOf(hash) }

// HeightOfTransaction resolves txid's block height. Requires tx-index open
// (spec §4.6); the genesis coinbase special-case is handled inside
// package txindex.
func (e *Explorer) HeightOfTransaction(txid chainhash.Hash) (int32, error) {
	return e.tx.GetBlockHeight(txid)
}

func (e *Explorer) rawBlockAt(h int32) (*wire.MsgBlock, error) {
	rec, err := e.idx.Header(h)
	if err != nil {
		return nil, err
	}
	return e.files.ReadBlock(rec.FileNo, rec.DataPos)
}

// rawTransaction resolves txid to its decoded transaction. The genesis
// coinbase is special-cased by reading block 0 directly, since Bitcoin
// Core never carries a txindex record for it (spec §4.6); every other
// txid goes through the transaction index, so this requires tx-index open.
func (e *Explorer) rawTransaction(txid chainhash.Hash) (*wire.MsgTx, error) {
	if txid == txindex.GenesisTxid {
		block, err := e.rawBlockAt(0)
		if err != nil {
			return nil, err
		}
		if len(block.Transactions) == 0 {
			return nil, chainerr.Corruptf("chainreader.rawTransaction", nil)
		}
		return block.Transactions[0], nil
	}

	rec, err := e.tx.GetRecord(txid)
	if err != nil {
		return nil, err
	}
	return e.files.ReadTransaction(rec.FileNo, rec.BlockDataPos, rec.TxOffset)
}

// RawBlock returns the consensus-decoded block at height h with no
// enrichment.
func (e *Explorer) RawBlock(h int32) (*shapes.RawBlock, error) { return e.rawBlockAt(h) }

// RawTransaction returns the consensus-decoded transaction identified by
// txid, with no enrichment. Requires tx-index open (except for genesis).
func (e *Explorer) RawTransaction(txid chainhash.Hash) (*shapes.RawTx, error) {
	return e.rawTransaction(txid)
}

// FullBlock returns the Full-shape block at height h.
func (e *Explorer) FullBlock(h int32) (shapes.FullBlock, error) {
	raw, err := e.rawBlockAt(h)
	if err != nil {
		return shapes.FullBlock{}, err
	}
	return shapes.NewFullBlock(raw, e.net), nil
}

// SimpleBlock returns the Simple-shape block at height h.
func (e *Explorer) SimpleBlock(h int32) (shapes.SimpleBlock, error) {
	full, err := e.FullBlock(h)
	if err != nil {
		return shapes.SimpleBlock{}, err
	}
	return shapes.NewSimpleBlock(full), nil
}

// FullTransaction returns the Full-shape transaction identified by txid.
func (e *Explorer) FullTransaction(txid chainhash.Hash) (shapes.FullTx, error) {
	tx, err := e.rawTransaction(txid)
	if err != nil {
		return shapes.FullTx{}, err
	}
	return shapes.NewFullTx(tx, e.net), nil
}

// SimpleTransaction returns the Simple-shape transaction identified by txid.
func (e *Explorer) SimpleTransaction(txid chainhash.Hash) (shapes.SimpleTx, error) {
	full, err := e.FullTransaction(txid)
	if err != nil {
		return shapes.SimpleTx{}, err
	}
	return shapes.NewSimpleTx(full), nil
}

// isCoinbase reports whether tx is a coinbase transaction: a single input
// whose previous outpoint is the null hash at index 0xffffffff.
func isCoinbase(tx *wire.MsgTx) bool {
	if len(tx.TxIn) != 1 {
		return false
	}
	in := tx.TxIn[0].PreviousOutPoint
	return in.Index == 0xffffffff && in.Hash == (chainhash.Hash{})
}

// ConnectedBlock resolves every non-coinbase input of the block at height
// h into the exact output it spends, via repeated transaction(previous_txid)
// lookups. Requires tx-index open; this is the "slow" per-block path spec
// §4.6 describes, bulk work should use ConnectedIterFull/ConnectedIterSimple
// instead.
func ConnectedBlock[O any](e *Explorer, h int32, build shapes.OutputBuilder[O]) (shapes.ConnectedBlock[O], error) {
	raw, err := e.rawBlockAt(h)
	if err != nil {
		return shapes.ConnectedBlock[O]{}, err
	}

	out := shapes.ConnectedBlock[O]{Hash: raw.BlockHash()}
	out.Txs = make([]shapes.ConnectedTx[O], len(raw.Transactions))
	for i, tx := range raw.Transactions {
		ctx, err := connectTx(e, tx, build)
		if err != nil {
			return shapes.ConnectedBlock[O]{}, err
		}
		out.Txs[i] = ctx
	}
	return out, nil
}

// ConnectedTransaction resolves txid's own non-coinbase inputs the same
// way ConnectedBlock does for a whole block.
func ConnectedTransaction[O any](e *Explorer, txid chainhash.Hash, build shapes.OutputBuilder[O]) (shapes.ConnectedTx[O], error) {
	tx, err := e.rawTransaction(txid)
	if err != nil {
		return shapes.ConnectedTx[O]{}, err
	}
	return connectTx(e, tx, build)
}

// connectTx rewrites tx's non-coinbase inputs into the outputs they spend,
// by repeated facade lookups (the "slow path", spec §4.6). Coinbase
// transactions get an empty TxIn, never a synthesized placeholder.
func connectTx[O any](e *Explorer, tx *wire.MsgTx, build shapes.OutputBuilder[O]) (shapes.ConnectedTx[O], error) {
	out := shapes.ConnectedTx[O]{Txid: tx.TxHash()}
	out.TxOut = make([]O, len(tx.TxOut))
	for i, o := range tx.TxOut {
		out.TxOut[i] = build(o.Value, o.PkScript)
	}
	if isCoinbase(tx) {
		return out, nil
	}

	out.TxIn = make([]shapes.ConnectedInput[O], len(tx.TxIn))
	for i, in := range tx.TxIn {
		prevTx, err := e.rawTransaction(in.PreviousOutPoint.Hash)
		if err != nil {
			return shapes.ConnectedTx[O]{}, err
		}
		if int(in.PreviousOutPoint.Index) >= len(prevTx.TxOut) {
			log.Warnf("chainreader: input %s:%d references output index %d but %s only has %d outputs",
				tx.TxHash(), i, in.PreviousOutPoint.Index, in.PreviousOutPoint.Hash, len(prevTx.TxOut))
			return shapes.ConnectedTx[O]{}, chainerr.NotFoundf("chainreader.connectTx", nil)
		}
		po := prevTx.TxOut[in.PreviousOutPoint.Index]
		out.TxIn[i] = shapes.ConnectedInput[O]{Output: build(po.Value, po.PkScript), Sequence: in.Sequence}
	}
	return out, nil
}

// ConnectedBlockFull is the FullOutput instantiation of ConnectedBlock.
func (e *Explorer) ConnectedBlockFull(h int32) (shapes.ConnectedFullBlock, error) {
	return ConnectedBlock(e, h, shapes.FullOutputBuilder(e.net))
}

// ConnectedBlockSimple is the SimpleOutput instantiation of ConnectedBlock.
func (e *Explorer) ConnectedBlockSimple(h int32) (shapes.ConnectedSimpleBlock, error) {
	return ConnectedBlock(e, h, shapes.SimpleOutputBuilder(e.net))
}

// ConnectedTransactionFull is the FullOutput instantiation of
// ConnectedTransaction.
func (e *Explorer) ConnectedTransactionFull(txid chainhash.Hash) (shapes.ConnectedTx[shapes.FullOutput], error) {
	return ConnectedTransaction(e, txid, shapes.FullOutputBuilder(e.net))
}

// ConnectedTransactionSimple is the SimpleOutput instantiation of
// ConnectedTransaction.
func (e *Explorer) ConnectedTransactionSimple(txid chainhash.Hash) (shapes.ConnectedTx[shapes.SimpleOutput], error) {
	return ConnectedTransaction(e, txid, shapes.SimpleOutputBuilder(e.net))
}

// IterRawBlocks streams raw blocks for heights, in input order, with disk
// reads parallelized across a worker pool (spec §4.7).
func (e *Explorer) IterRawBlocks(heights []int32) *iter.Iterator[*shapes.RawBlock] {
	return iter.New(heights, e.workers, e.rawBlockAt)
}

// IterFullBlocks streams Full-shape blocks for heights.
func (e *Explorer) IterFullBlocks(heights []int32) *iter.Iterator[shapes.FullBlock] {
	return iter.New(heights, e.workers, e.FullBlock)
}

// IterSimpleBlocks streams Simple-shape blocks for heights.
func (e *Explorer) IterSimpleBlocks(heights []int32) *iter.Iterator[shapes.SimpleBlock] {
	return iter.New(heights, e.workers, e.SimpleBlock)
}

func (e *Explorer) newUTXOStore() (utxo.Store, error) {
	if e.backend == UTXOBackendDisk {
		dir, err := os.MkdirTemp("", "chainreader-utxo-*")
		if err != nil {
			return nil, chainerr.IOf("chainreader.newUTXOStore", err)
		}
		return utxo.NewDiskStore(dir)
	}
	return utxo.NewMemoryStore(), nil
}

// ConnectedIterFull returns a connected-block iterator over [0, end)
// producing FullOutput-shaped blocks (spec §4.8). Every call builds a
// fresh UTXO store, since iteration always starts at height 0.
func (e *Explorer) ConnectedIterFull(end int32) (*citer.Iterator[shapes.FullOutput], error) {
	store, err := e.newUTXOStore()
	if err != nil {
		return nil, err
	}
	return citer.New(e.idx, e.files, store, end, e.workers, shapes.FullOutputBuilder(e.net))
}

// ConnectedIterSimple is the SimpleOutput instantiation of
// ConnectedIterFull.
func (e *Explorer) ConnectedIterSimple(end int32) (*citer.Iterator[shapes.SimpleOutput], error) {
	store, err := e.newUTXOStore()
	if err != nil {
		return nil, err
	}
	return citer.New(e.idx, e.files, store, end, e.workers, shapes.SimpleOutputBuilder(e.net))
}
