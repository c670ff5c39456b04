package script

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// Test vectors 1, 3, 5, 6 from spec §8, preserved byte-for-byte.
func TestClassifyVectors(t *testing.T) {
	net := &chaincfg.MainNetParams

	t.Run("p2pkh", func(t *testing.T) {
		s := mustHex(t, "76a91412ab8dc588ca9d5787dde7eb29569da63c3a238c88ac")
		r := Classify(s, net)
		require.Equal(t, Pay2PublicKeyHash, r.Type)
		require.Equal(t, []string{"12higDjoCCNXSA95xZMWUdPvXNmkAduhWv"}, r.Addresses)
	})

	t.Run("p2sh", func(t *testing.T) {
		s := mustHex(t, "a914e9c3dd0c07aac76179ebc76a6c78d4d67c6c160a87")
		r := Classify(s, net)
		require.Equal(t, Pay2ScriptHash, r.Type)
		require.Equal(t, []string{"3P14159f73E4gFr7JterCCQh9QjiTjiZrG"}, r.Addresses)
	})

	t.Run("not_recognised_ascii", func(t *testing.T) {
		s := mustHex(t, "736372697074")
		r := Classify(s, net)
		require.Equal(t, NotRecognised, r.Type)
		require.Empty(t, r.Addresses)
	})

	t.Run("not_recognised_malformed_push", func(t *testing.T) {
		s := mustHex(t, "4cff00")
		r := Classify(s, net)
		require.Equal(t, NotRecognised, r.Type)
		require.Empty(t, r.Addresses)
	})
}

func TestClassifyP2PKStructural(t *testing.T) {
	net := &chaincfg.MainNetParams
	// 65-byte uncompressed pubkey push (0x41) + OP_CHECKSIG (0xac), using
	// the mainnet generator point so btcec accepts it as a valid key.
	pub := mustHex(t, "0479be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8")
	s := append([]byte{0x41}, pub...)
	s = append(s, opCheckSig)

	r := Classify(s, net)
	require.Equal(t, Pay2PublicKey, r.Type)
	require.Len(t, r.Addresses, 1)
}

func TestClassifyBareMultiSig(t *testing.T) {
	net := &chaincfg.MainNetParams
	pub := mustHex(t, "02" + "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")

	build := func(m, n int, pubkeys [][]byte) []byte {
		s := []byte{byte(0x50 + m)}
		for _, p := range pubkeys {
			s = append(s, byte(len(p)))
			s = append(s, p...)
		}
		s = append(s, byte(0x50+n))
		s = append(s, opCheckMultiSig)
		return s
	}

	t.Run("2_of_3", func(t *testing.T) {
		pubkeys := [][]byte{pub, pub, pub}
		s := build(2, 3, pubkeys)
		r := Classify(s, net)
		require.Equal(t, Pay2MultiSig, r.Type)
		require.Len(t, r.Addresses, 3)
	})

	t.Run("bad_pubkey_empty_addresses", func(t *testing.T) {
		badPub := make([]byte, 33)
		pubkeys := [][]byte{pub, badPub}
		s := build(1, 2, pubkeys)
		r := Classify(s, net)
		require.Equal(t, Pay2MultiSig, r.Type)
		require.Empty(t, r.Addresses)
	})
}

func TestClassifyOpReturnAndUnspendable(t *testing.T) {
	net := &chaincfg.MainNetParams

	r := Classify([]byte{opReturn, 0x04, 'd', 'a', 't', 'a'}, net)
	require.Equal(t, OpReturn, r.Type)
	require.Empty(t, r.Addresses)

	big := make([]byte, maxScriptSize+1)
	r = Classify(big, net)
	require.Equal(t, Unspendable, r.Type)
	require.Empty(t, r.Addresses)
}

func TestClassifyWitnessProgram(t *testing.T) {
	net := &chaincfg.MainNetParams
	// v1 (taproot-shaped) witness program: no dedicated tag in the closed
	// enumeration, so it falls to WitnessProgram with no addresses.
	prog := make([]byte, 32)
	s := append([]byte{0x51, 0x20}, prog...)
	r := Classify(s, net)
	require.Equal(t, WitnessProgram, r.Type)
	require.Empty(t, r.Addresses)
}
