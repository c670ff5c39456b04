// Package citer implements the connected-block iterator (spec §4.8): a
// two-stage pipeline that streams every block in [0, end) with its
// non-coinbase inputs rewritten to the exact outputs they spend, backed by
// a streaming UTXO set (package utxo) instead of the transaction index.
//
// Stage A decodes blocks and ingests their outputs into the UTXO store,
// committing in strict height order behind a condition variable; stage B
// resolves each block's inputs against the store and emits the connected
// form. Both stages propagate failure through a shared stop flag, mirroring
// package iter's fail-fast/drain-on-drop semantics (SPEC_FULL.md §C item 1:
// the original's two-queue, condition-variable design; no undo files are
// read).
package citer

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/wire"

	"chainreader/blkfile"
	"chainreader/blockindex"
	"chainreader/chainerr"
	"chainreader/shapes"
	"chainreader/utxo"
)

const outBufferSize = 10

type blockAtHeight struct {
	height int32
	raw    *wire.MsgBlock
}

type result[O any] struct {
	value shapes.ConnectedBlock[O]
	err   error
}

// Iterator streams connected blocks for heights [0, end) in order. The
// zero value is not usable; construct with New.
type Iterator[O any] struct {
	idx   *blockindex.Index
	files *blkfile.Store
	store utxo.Store

	end         int32
	buildOutput shapes.OutputBuilder[O]

	taskMu     sync.Mutex
	nextHeight int32

	commitMu     sync.Mutex
	commitCond   *sync.Cond
	ingestHeight int32

	toStageB chan blockAtHeight
	out      chan result[O]

	stopped   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	storeOnce sync.Once
	storeErr  error

	errMu    sync.Mutex
	firstErr error

	wgA sync.WaitGroup
	wgB sync.WaitGroup

	lastErr  error
	finished bool
}

// New builds and starts a connected-block iterator over heights [0, end),
// using numWorkers stage-A decode workers (<= 0 selects
// runtime.GOMAXPROCS(0)). store must be freshly constructed: iteration
// always starts at height 0, since the UTXO set is rebuilt from scratch
// (spec §4.8's "no supported resume point").
func New[O any](idx *blockindex.Index, files *blkfile.Store, store utxo.Store, end int32, numWorkers int, buildOutput shapes.OutputBuilder[O]) (*Iterator[O], error) {
	if end < 0 || end > idx.MaxHeight() {
		return nil, chainerr.NotFoundf("citer.New", nil)
	}
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	it := &Iterator[O]{
		idx:         idx,
		files:       files,
		store:       store,
		end:         end,
		buildOutput: buildOutput,
		toStageB:    make(chan blockAtHeight, outBufferSize),
		out:         make(chan result[O], outBufferSize),
		done:        make(chan struct{}),
	}
	it.commitCond = sync.NewCond(&it.commitMu)

	it.wgA.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go it.stageAWorker()
	}
	go func() {
		it.wgA.Wait()
		close(it.toStageB)
	}()
	it.wgB.Add(1)
	go it.stageB()

	return it, nil
}

func (it *Iterator[O]) setErr(err error) {
	it.errMu.Lock()
	defer it.errMu.Unlock()
	if it.firstErr == nil {
		it.firstErr = err
	}
}

func (it *Iterator[O]) getErr() error {
	it.errMu.Lock()
	defer it.errMu.Unlock()
	return it.firstErr
}

func (it *Iterator[O]) readBlock(height int32) (*wire.MsgBlock, error) {
	rec, err := it.idx.Header(height)
	if err != nil {
		return nil, err
	}
	return it.files.ReadBlock(rec.FileNo, rec.DataPos)
}

func (it *Iterator[O]) ingest(raw *wire.MsgBlock) error {
	txs := make([]utxo.TxOutputs, len(raw.Transactions))
	for i, tx := range raw.Transactions {
		txid := tx.TxHash()
		outputs := make([]utxo.Output, len(tx.TxOut))
		for j, o := range tx.TxOut {
			outputs[j] = utxo.Output{Value: o.Value, PkScript: o.PkScript}
		}
		txs[i] = utxo.TxOutputs{Txid: txid, Outputs: outputs}
	}
	return it.store.IngestBlockOutputs(txs)
}

func (it *Iterator[O]) stageAWorker() {
	defer it.wgA.Done()

	for {
		if it.stopped.Load() {
			return
		}

		it.taskMu.Lock()
		if it.nextHeight >= it.end {
			it.taskMu.Unlock()
			return
		}
		h := it.nextHeight
		it.nextHeight++
		it.taskMu.Unlock()

		raw, err := it.readBlock(h)
		if err != nil {
			it.stopped.Store(true)
			it.setErr(err)
			it.commitMu.Lock()
			it.commitCond.Broadcast()
			it.commitMu.Unlock()
			return
		}

		it.commitMu.Lock()
		for it.ingestHeight != h && !it.stopped.Load() {
			it.commitCond.Wait()
		}
		if it.stopped.Load() {
			it.commitMu.Unlock()
			return
		}

		if err := it.ingest(raw); err != nil {
			it.stopped.Store(true)
			it.setErr(err)
			it.commitCond.Broadcast()
			it.commitMu.Unlock()
			return
		}
		it.ingestHeight++

		select {
		case it.toStageB <- blockAtHeight{height: h, raw: raw}:
		case <-it.done:
			it.commitCond.Broadcast()
			it.commitMu.Unlock()
			return
		}
		it.commitCond.Broadcast()
		it.commitMu.Unlock()
	}
}

func (it *Iterator[O]) resolve(blk blockAtHeight) (shapes.ConnectedBlock[O], error) {
	raw := blk.raw

	var outpoints []utxo.OutPoint
	for i, tx := range raw.Transactions {
		if i == 0 {
			continue // coinbase: no inputs to resolve, per spec §3/§4.8
		}
		for _, in := range tx.TxIn {
			outpoints = append(outpoints, utxo.OutPoint{
				Txid:  in.PreviousOutPoint.Hash,
				Index: in.PreviousOutPoint.Index,
			})
		}
	}

	resolved, err := it.store.SpendInputs(outpoints)
	if err != nil {
		return shapes.ConnectedBlock[O]{}, err
	}

	out := shapes.ConnectedBlock[O]{Hash: raw.BlockHash()}
	out.Txs = make([]shapes.ConnectedTx[O], len(raw.Transactions))

	cursor := 0
	for i, tx := range raw.Transactions {
		ctx := shapes.ConnectedTx[O]{Txid: tx.TxHash()}
		ctx.TxOut = make([]O, len(tx.TxOut))
		for j, o := range tx.TxOut {
			ctx.TxOut[j] = it.buildOutput(o.Value, o.PkScript)
		}
		if i != 0 {
			ctx.TxIn = make([]shapes.ConnectedInput[O], len(tx.TxIn))
			for j, in := range tx.TxIn {
				ro := resolved[cursor]
				cursor++
				ctx.TxIn[j] = shapes.ConnectedInput[O]{
					Output:   it.buildOutput(ro.Value, ro.PkScript),
					Sequence: in.Sequence,
				}
			}
		}
		out.Txs[i] = ctx
	}
	return out, nil
}

func (it *Iterator[O]) stageB() {
	defer it.wgB.Done()
	defer close(it.out)

	for blk := range it.toStageB {
		connected, err := it.resolve(blk)
		if err != nil {
			it.stopped.Store(true)
			it.setErr(err)
			it.commitMu.Lock()
			it.commitCond.Broadcast()
			it.commitMu.Unlock()
			select {
			case it.out <- result[O]{err: err}:
			case <-it.done:
			}
			return
		}
		select {
		case it.out <- result[O]{value: connected}:
		case <-it.done:
			return
		}
	}

	if err := it.getErr(); err != nil {
		select {
		case it.out <- result[O]{err: err}:
		case <-it.done:
		}
	}
}

// Next returns the next connected block in height order. ok is false at
// end of stream, whether because end was reached or a stage failed; call
// Err to distinguish.
func (it *Iterator[O]) Next() (shapes.ConnectedBlock[O], bool) {
	if it.finished {
		var zero shapes.ConnectedBlock[O]
		return zero, false
	}
	r, ok := <-it.out
	if !ok {
		it.finished = true
		var zero shapes.ConnectedBlock[O]
		return zero, false
	}
	if r.err != nil {
		it.finished = true
		it.lastErr = r.err
		var zero shapes.ConnectedBlock[O]
		return zero, false
	}
	return r.value, true
}

// Err returns the first error that ended the stream early, or nil.
func (it *Iterator[O]) Err() error { return it.lastErr }

// Close cancels iteration: sets the stop flag, closes the done channel that
// every bounded send selects on and wakes the commit condition variable, so
// no worker stays parked on either; then joins every worker, and releases the UTXO store (deleting its
// temporary directory for the on-disk backend), per spec §4.8.
func (it *Iterator[O]) Close() error {
	it.closeOnce.Do(func() {
		it.stopped.Store(true)
		close(it.done)
		it.commitMu.Lock()
		it.commitCond.Broadcast()
		it.commitMu.Unlock()
	})

	// Every channel send in both stages already selects on it.done, so no
	// worker can be stuck on a bounded send once the stop flag and done
	// channel above are set; stage A joining lets the toStageB-closing
	// monitor goroutine run, which in turn lets stage B's range loop (and
	// therefore stage B itself) terminate.
	it.wgA.Wait()
	it.wgB.Wait()

	it.storeOnce.Do(func() {
		it.storeErr = it.store.Close()
	})
	return it.storeErr
}
