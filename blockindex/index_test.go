package blockindex

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// encodeCoreVarInt mirrors Bitcoin Core's WriteVarInt (serialize.h),
// used here only to build fixture records for the tests below.
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

func buildRecordValue(t *testing.T, height int32, status Status, txCount uint64, fileNo int32, dataPos, undoPos uint64) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(encodeCoreVarInt(1)) // version
	buf.Write(encodeCoreVarInt(uint64(int64(height))))
	buf.Write(encodeCoreVarInt(uint64(status)))
	buf.Write(encodeCoreVarInt(txCount))
	if status.HasData() {
		buf.Write(encodeCoreVarInt(uint64(int64(fileNo))))
		buf.Write(encodeCoreVarInt(dataPos))
	}
	if status.HasUndo() {
		buf.Write(encodeCoreVarInt(undoPos))
	}
	var hdr wire.BlockHeader
	require.NoError(t, hdr.Serialize(&buf))
	return buf.Bytes()
}

func TestOpenAndLookup(t *testing.T) {
	dir := t.TempDir()
	db, err := leveldb.OpenFile(dir, &opt.Options{})
	require.NoError(t, err)

	fullyValid := validScripts | haveData
	for h := int32(0); h < 3; h++ {
		var hash [32]byte
		hash[0] = byte(h + 1)
		key := append([]byte{recordPrefix}, hash[:]...)
		val := buildRecordValue(t, h, fullyValid, 1, 0, uint64(h*100), 0)
		require.NoError(t, db.Put(key, val, nil))
	}
	require.NoError(t, db.Close())

	idx, err := Open(dir)
	require.NoError(t, err)
	require.EqualValues(t, 3, idx.MaxHeight())
	require.EqualValues(t, 3, idx.BlockCount())

	rec, err := idx.Header(1)
	require.NoError(t, err)
	require.EqualValues(t, 1, rec.Height)

	h, err := idx.HeightOf(rec.Hash)
	require.NoError(t, err)
	require.Equal(t, int32(1), h)

	_, err = idx.Header(99)
	require.Error(t, err)
}

func TestBlockCountStopsAtUndownloaded(t *testing.T) {
	dir := t.TempDir()
	db, err := leveldb.OpenFile(dir, &opt.Options{})
	require.NoError(t, err)

	fullyValid := validScripts | haveData
	for h := int32(0); h < 5; h++ {
		var hash [32]byte
		hash[0] = byte(h + 1)
		key := append([]byte{recordPrefix}, hash[:]...)
		txCount := uint64(1)
		if h >= 2 {
			txCount = 0 // not-yet-downloaded
		}
		val := buildRecordValue(t, h, fullyValid, txCount, 0, uint64(h*100), 0)
		require.NoError(t, db.Put(key, val, nil))
	}
	require.NoError(t, db.Close())

	idx, err := Open(dir)
	require.NoError(t, err)
	require.EqualValues(t, 5, idx.MaxHeight())
	require.EqualValues(t, 2, idx.BlockCount())
}
