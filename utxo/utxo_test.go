package utxo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressIsDeterministicAndDistinct(t *testing.T) {
	var a, b [32]byte
	a[0] = 1
	b[0] = 2

	require.Equal(t, Compress(a), Compress(a))
	require.NotEqual(t, Compress(a), Compress(b))
}

func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("ingest and spend", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		var txid [32]byte
		txid[0] = 0xaa
		require.NoError(t, s.IngestBlockOutputs([]TxOutputs{{
			Txid: txid,
			Outputs: []Output{
				{Value: 100, PkScript: []byte{0x76, 0xa9}},
				{Value: 200, PkScript: []byte{0x00, 0x14}},
			},
		}}))
		require.Equal(t, 2, s.Len())

		got, err := s.SpendInputs([]OutPoint{{Txid: txid, Index: 0}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, int64(100), got[0].Value)
		require.Equal(t, 1, s.Len())

		got, err = s.SpendInputs([]OutPoint{{Txid: txid, Index: 1}})
		require.NoError(t, err)
		require.Equal(t, int64(200), got[0].Value)
		require.Equal(t, 0, s.Len())
	})

	t.Run("missing outpoint is an error", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		var txid [32]byte
		_, err := s.SpendInputs([]OutPoint{{Txid: txid, Index: 0}})
		require.Error(t, err)
	})

	t.Run("double spend is an error", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		var txid [32]byte
		txid[0] = 0x01
		require.NoError(t, s.IngestBlockOutputs([]TxOutputs{{
			Txid:    txid,
			Outputs: []Output{{Value: 50}},
		}}))
		_, err := s.SpendInputs([]OutPoint{{Txid: txid, Index: 0}})
		require.NoError(t, err)
		_, err = s.SpendInputs([]OutPoint{{Txid: txid, Index: 0}})
		require.Error(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestDiskStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewDiskStore(t.TempDir())
		require.NoError(t, err)
		return s
	})
}
