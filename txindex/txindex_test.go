package txindex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"chainreader/blockindex"
	"chainreader/chainerr"
)

func encodeCoreVarInt(n uint64) []byte {
	var tmp []byte
	tmp = append(tmp, byte(n&0x7f))
	for n >>= 7; n > 0; n >>= 7 {
		n--
		tmp = append(tmp, byte(n&0x7f)|0x80)
	}
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp
}

func TestNoOpSentinel(t *testing.T) {
	x := NoOp()
	_, err := x.GetRecord(genesisTxid)
	require.True(t, chainerr.Is(err, chainerr.NotOpen))
	_, err = x.GetBlockHeight(genesisTxid)
	require.True(t, chainerr.Is(err, chainerr.NotOpen))
}

func TestOpenDisabledReturnsNoOp(t *testing.T) {
	x, err := Open(t.TempDir(), false, &blockindex.Index{})
	require.NoError(t, err)
	_, err = x.GetRecord(genesisTxid)
	require.True(t, chainerr.Is(err, chainerr.NotOpen))
}

func TestGenesisSpecialCase(t *testing.T) {
	dir := t.TempDir()
	db, err := leveldb.OpenFile(dir, &opt.Options{})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	idx, err := Open(dir, true, &blockindex.Index{})
	require.NoError(t, err)
	defer idx.Close()

	h, err := idx.GetBlockHeight(genesisTxid)
	require.NoError(t, err)
	require.EqualValues(t, 0, h)
}

func TestGetRecord(t *testing.T) {
	dir := t.TempDir()
	db, err := leveldb.OpenFile(dir, &opt.Options{})
	require.NoError(t, err)

	var txid [32]byte
	txid[0] = 0x42
	var val bytes.Buffer
	val.Write(encodeCoreVarInt(3))   // file_no
	val.Write(encodeCoreVarInt(100)) // block_data_pos
	val.Write(encodeCoreVarInt(5))   // tx_offset

	key := append([]byte{keyPrefix}, txid[:]...)
	require.NoError(t, db.Put(key, val.Bytes(), nil))
	require.NoError(t, db.Close())

	bidx := &blockindex.Index{}
	xi, err := Open(dir, true, bidx)
	require.NoError(t, err)
	defer xi.Close()

	rec, err := xi.GetRecord(txid)
	require.NoError(t, err)
	require.EqualValues(t, 3, rec.FileNo)
	require.EqualValues(t, 100, rec.BlockDataPos)
	require.EqualValues(t, 5, rec.TxOffset)
}
