// Package shapes defines the three presentation levels of a decoded block
// or transaction (spec §3/§4.6: Raw, Full, Simple) and their connected
// variants, plus the From-raw conversions between them. Raw values are the
// consensus-decoded btcd wire types with no enrichment; Full and Simple add
// precomputed hashes/txids and script classification, Simple dropping the
// fields spec §3 names as unnecessary for most downstream analytics.
//
// Grounded on the original's three-tier split (the teacher's
// pkg/types.TransactionOutput / BlockOutput carried one flat shape; this module's spec instead wants three
// separate Rust-style newtypes, recovered from
// original_source/src/parser/proto/{full,simple}_proto.rs) and generalized
// into Go constructor functions taking the shape below it, mirroring Rust's
// From<Raw> trait impls.
package shapes

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"chainreader/script"
)

// RawBlock and RawTx are the consensus-decoded shapes with no enrichment,
// decoded directly by github.com/btcsuite/btcd/wire.
type RawBlock = wire.MsgBlock
type RawTx = wire.MsgTx

// FullOutput is an output enriched with its script classification.
type FullOutput struct {
	Value      int64
	PkScript   []byte
	ScriptType script.Type
	Addresses  []string
}

// FullInput is an input with its previous outpoint reference, exactly as
// consensus-encoded (the connected variants below replace this with the
// resolved output).
type FullInput struct {
	PreviousOutPoint wire.OutPoint
	SignatureScript  []byte
	Witness          wire.TxWitness
	Sequence         uint32
}

// FullTx is a transaction enriched with its txid and per-output script
// classification.
type FullTx struct {
	Version  int32
	TxIn     []FullInput
	TxOut    []FullOutput
	LockTime uint32
	Txid     chainhash.Hash
}

// FullBlock is a block enriched with its hash and per-transaction txid and
// script classification.
type FullBlock struct {
	Version       int32
	PrevBlockHash chainhash.Hash
	MerkleRoot    chainhash.Hash
	Timestamp     time.Time
	Bits          uint32
	Nonce         uint32
	Hash          chainhash.Hash
	Txs           []FullTx
}

// SimpleOutput drops the output script bytes that Full retains, keeping
// only what most downstream analytics need per spec §3.
type SimpleOutput struct {
	Value      int64
	ScriptType script.Type
	Addresses  []string
}

// SimpleInput drops the witness that Full retains, per spec §3.
type SimpleInput struct {
	PreviousOutPoint wire.OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// SimpleTx drops Version and LockTime (and, transitively, witnesses/output scripts via
// its Simple-level fields), per spec §3.
type SimpleTx struct {
	TxIn  []SimpleInput
	TxOut []SimpleOutput
	Txid  chainhash.Hash
}

// SimpleBlock drops PrevBlockHash, MerkleRoot, Bits, Nonce, and Version,
// per spec §3.
type SimpleBlock struct {
	Timestamp time.Time
	Hash      chainhash.Hash
	Txs       []SimpleTx
}

// ConnectedInput pairs a resolved previous output (at output shape O) with
// the spending input's sequence number. Coinbase inputs are never
// represented here; spec §3 drops them rather than synthesizing a
// placeholder.
type ConnectedInput[O any] struct {
	Output   O
	Sequence uint32
}

// ConnectedTx is a transaction whose non-coinbase inputs have been
// rewritten into the exact output each consumes, at output shape O
// (FullOutput or SimpleOutput).
type ConnectedTx[O any] struct {
	TxIn  []ConnectedInput[O]
	TxOut []O
	Txid  chainhash.Hash
}

// ConnectedBlock is a block of ConnectedTx at output shape O.
type ConnectedBlock[O any] struct {
	Hash chainhash.Hash
	Txs  []ConnectedTx[O]
}

// ConnectedFullBlock and ConnectedSimpleBlock are the two concrete
// instantiations spec §3 calls for ("connected shapes mirror full/simple").
type ConnectedFullBlock = ConnectedBlock[FullOutput]
type ConnectedSimpleBlock = ConnectedBlock[SimpleOutput]

// NewFullOutput classifies txOut's script and builds the enriched shape.
func NewFullOutput(txOut *wire.TxOut, net *chaincfg.Params) FullOutput {
	r := script.Classify(txOut.PkScript, net)
	return FullOutput{
		Value:      txOut.Value,
		PkScript:   txOut.PkScript,
		ScriptType: r.Type,
		Addresses:  r.Addresses,
	}
}

// NewFullTx converts a raw transaction into its Full shape.
func NewFullTx(tx *RawTx, net *chaincfg.Params) FullTx {
	out := FullTx{
		Version:  tx.Version,
		LockTime: tx.LockTime,
		Txid:     tx.TxHash(),
	}
	out.TxIn = make([]FullInput, len(tx.TxIn))
	for i, in := range tx.TxIn {
		out.TxIn[i] = FullInput{
			PreviousOutPoint: in.PreviousOutPoint,
			SignatureScript:  in.SignatureScript,
			Witness:          in.Witness,
			Sequence:         in.Sequence,
		}
	}
	out.TxOut = make([]FullOutput, len(tx.TxOut))
	for i, o := range tx.TxOut {
		out.TxOut[i] = NewFullOutput(o, net)
	}
	return out
}

// NewFullBlock converts a raw block into its Full shape.
func NewFullBlock(block *RawBlock, net *chaincfg.Params) FullBlock {
	h := block.Header
	out := FullBlock{
		Version:       h.Version,
		PrevBlockHash: h.PrevBlock,
		MerkleRoot:    h.MerkleRoot,
		Timestamp:     h.Timestamp,
		Bits:          h.Bits,
		Nonce:         h.Nonce,
		Hash:          block.BlockHash(),
	}
	out.Txs = make([]FullTx, len(block.Transactions))
	for i, tx := range block.Transactions {
		out.Txs[i] = NewFullTx(tx, net)
	}
	return out
}

// OutputBuilder constructs an output of shape O from a resolved UTXO
// entry's raw value/pkScript pair. The connected-block iterator (package
// citer) uses this to stay generic over which output shape it resolves
// into, mirroring NewFullOutput/NewSimpleOutput's role for the
// non-connected shapes.
type OutputBuilder[O any] func(value int64, pkScript []byte) O

// FullOutputBuilder returns an OutputBuilder producing FullOutput.
func FullOutputBuilder(net *chaincfg.Params) OutputBuilder[FullOutput] {
	return func(value int64, pkScript []byte) FullOutput {
		r := script.Classify(pkScript, net)
		return FullOutput{Value: value, PkScript: pkScript, ScriptType: r.Type, Addresses: r.Addresses}
	}
}

// SimpleOutputBuilder returns an OutputBuilder producing SimpleOutput.
func SimpleOutputBuilder(net *chaincfg.Params) OutputBuilder[SimpleOutput] {
	full := FullOutputBuilder(net)
	return func(value int64, pkScript []byte) SimpleOutput {
		return NewSimpleOutput(full(value, pkScript))
	}
}

// NewSimpleOutput drops PkScript from a FullOutput.
func NewSimpleOutput(f FullOutput) SimpleOutput {
	return SimpleOutput{Value: f.Value, ScriptType: f.ScriptType, Addresses: f.Addresses}
}

// NewSimpleTx drops version, witnesses and locktime from a FullTx.
func NewSimpleTx(f FullTx) SimpleTx {
	out := SimpleTx{Txid: f.Txid}
	out.TxIn = make([]SimpleInput, len(f.TxIn))
	for i, in := range f.TxIn {
		out.TxIn[i] = SimpleInput{
			PreviousOutPoint: in.PreviousOutPoint,
			SignatureScript:  in.SignatureScript,
			Sequence:         in.Sequence,
		}
	}
	out.TxOut = make([]SimpleOutput, len(f.TxOut))
	for i, o := range f.TxOut {
		out.TxOut[i] = NewSimpleOutput(o)
	}
	return out
}

// NewSimpleBlock drops header fields per spec §3 from a FullBlock.
func NewSimpleBlock(f FullBlock) SimpleBlock {
	out := SimpleBlock{Timestamp: f.Timestamp, Hash: f.Hash}
	out.Txs = make([]SimpleTx, len(f.Txs))
	for i, tx := range f.Txs {
		out.Txs[i] = NewSimpleTx(tx)
	}
	return out
}
