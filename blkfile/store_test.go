package blkfile

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func sampleBlock(t *testing.T) *wire.MsgBlock {
	t.Helper()
	block := wire.NewMsgBlock(&wire.BlockHeader{
		Version:   1,
		Timestamp: time.Unix(1231006505, 0),
		Bits:      0x1d00ffff,
		Nonce:     2083236893,
	})
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
		SignatureScript:  []byte{0x04},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: 5000000000, PkScript: []byte{0x76, 0xa9, 0x14}})
	require.NoError(t, block.AddTransaction(tx))
	return block
}

func writeBlkFile(t *testing.T, dir string, fileNo int, block *wire.MsgBlock) (offset int64) {
	t.Helper()
	var payload bytes.Buffer
	require.NoError(t, block.Serialize(&payload))

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(0xd9b4bef9)) // magic
	binary.Write(&out, binary.LittleEndian, uint32(payload.Len()))
	offset = int64(out.Len())
	out.Write(payload.Bytes())

	path := filepath.Join(dir, "blk00000.dat")
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
	_ = fileNo
	return offset
}

func TestReadBlockAndTransaction(t *testing.T) {
	dir := t.TempDir()
	block := sampleBlock(t)
	offset := writeBlkFile(t, dir, 0, block)

	store, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, []int32{0}, store.FileNos())

	got, err := store.ReadBlock(0, offset)
	require.NoError(t, err)
	require.Equal(t, block.Header.Nonce, got.Header.Nonce)
	require.Len(t, got.Transactions, 1)

	// tx_offset is measured from the end of the 80-byte header; the lone
	// transaction follows a 1-byte CompactSize tx count.
	tx, err := store.ReadTransaction(0, offset, 1)
	require.NoError(t, err)
	require.Equal(t, block.Transactions[0].TxOut[0].Value, tx.TxOut[0].Value)
}

func TestOpenEmptyDirFails(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir)
	require.Error(t, err)
}

func TestReadBlockUnknownFileNo(t *testing.T) {
	dir := t.TempDir()
	block := sampleBlock(t)
	writeBlkFile(t, dir, 0, block)

	store, err := Open(dir)
	require.NoError(t, err)

	_, err = store.ReadBlock(7, 8)
	require.Error(t, err)
}
