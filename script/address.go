package script

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // Bitcoin's hash160 is SHA256 then RIPEMD160; no replacement exists.
)

// hash160 is SHA256 followed by RIPEMD160, Bitcoin's standard pubkey/script
// hash used for P2PKH/P2SH and, per spec §4.2 rule 1, the core's own
// definition of "the P2PK address" for a pushed pubkey.
func hash160(b []byte) []byte {
	sha := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

// pubKeyAddress maps a pubkey push (33 or 65 bytes) to the implicit P2PKH
// address Bitcoin Core never assigns natively to P2PK scripts but this
// module defines per spec §4.2 rule 1. It also validates the push decodes
// to a real secp256k1 point, matching the teacher's btcec.ParsePubKey use
// in readUndoPrevout for the analogous uncompressed-key reconstruction.
func pubKeyAddress(pubKey []byte, net *chaincfg.Params) (string, bool) {
	if _, err := btcec.ParsePubKey(pubKey); err != nil {
		return "", false
	}
	addr, err := btcutil.NewAddressPubKeyHash(hash160(pubKey), net)
	if err != nil {
		return "", false
	}
	return addr.EncodeAddress(), true
}

func p2pkhAddress(hash []byte, net *chaincfg.Params) (string, bool) {
	addr, err := btcutil.NewAddressPubKeyHash(hash, net)
	if err != nil {
		return "", false
	}
	return addr.EncodeAddress(), true
}

func p2shAddress(hash []byte, net *chaincfg.Params) (string, bool) {
	addr, err := btcutil.NewAddressScriptHash(hash, net)
	if err != nil {
		return "", false
	}
	return addr.EncodeAddress(), true
}

func p2wpkhAddress(hash []byte, net *chaincfg.Params) (string, bool) {
	addr, err := btcutil.NewAddressWitnessPubKeyHash(hash, net)
	if err != nil {
		return "", false
	}
	return addr.EncodeAddress(), true
}

func p2wshAddress(hash []byte, net *chaincfg.Params) (string, bool) {
	addr, err := btcutil.NewAddressWitnessScriptHash(hash, net)
	if err != nil {
		return "", false
	}
	return addr.EncodeAddress(), true
}
