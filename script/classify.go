package script

import (
	"github.com/btcsuite/btcd/chaincfg"
)

// Classify classifies a locking script per spec §4.2's fixed order: P2PK,
// then the standard single-shape detections (P2PKH/P2SH/v0 P2WPKH/v0
// P2WSH/generic witness program/OP_RETURN/provably unspendable), then bare
// multisig, and finally NotRecognised. A script longer than maxScriptSize
// is tagged Unspendable before any of these checks run. net fixes the address encoding to
// one network (mainnet in this module; see Config.Network in SPEC_FULL.md
// §A.3).
func Classify(pkScript []byte, net *chaincfg.Params) Result {
	if len(pkScript) > maxScriptSize {
		return Result{Type: Unspendable}
	}

	if r, ok := classifyP2PK(pkScript, net); ok {
		return r
	}
	if r, ok := classifyStandard(pkScript, net); ok {
		return r
	}
	if r, ok := classifyBareMultiSig(pkScript, net); ok {
		return r
	}
	return Result{Type: NotRecognised}
}

// classifyP2PK matches a single push of a 33- or 65-byte pubkey followed
// by OP_CHECKSIG, per spec §4.2 rule 1.
func classifyP2PK(s []byte, net *chaincfg.Params) (Result, bool) {
	chunks, ok := parseChunks(s)
	if !ok || len(chunks) != 2 {
		return Result{}, false
	}
	push, sig := chunks[0], chunks[1]
	if push.data == nil || sig.op != opCheckSig {
		return Result{}, false
	}
	if len(push.data) != 33 && len(push.data) != 65 {
		return Result{}, false
	}
	addr, ok := pubKeyAddress(push.data, net)
	if !ok {
		return Result{Type: Pay2PublicKey}, true
	}
	return Result{Type: Pay2PublicKey, Addresses: []string{addr}}, true
}

// classifyStandard matches P2PKH, P2SH, v0 P2WPKH, v0 P2WSH, a generic
// (non-v0) witness program, and OP_RETURN. The oversize unspendable case
// is handled by Classify before this is called. Generalized from the teacher's ClassifyOutputScript
// (pkg/analyzer/script.go), which only recognized these by exact byte
// layout with no address derivation beyond btcutil; here the same exact
// byte layouts gate the match and btcutil.Address does the encoding.
func classifyStandard(s []byte, net *chaincfg.Params) (Result, bool) {
	switch {
	case len(s) == 25 && s[0] == opDup && s[1] == opHash160 && s[2] == 0x14 &&
		s[23] == opEqualVerify && s[24] == opCheckSig:
		addr, ok := p2pkhAddress(s[3:23], net)
		if !ok {
			return Result{Type: Pay2PublicKeyHash}, true
		}
		return Result{Type: Pay2PublicKeyHash, Addresses: []string{addr}}, true

	case len(s) == 23 && s[0] == opHash160 && s[1] == 0x14 && s[22] == opEqual:
		addr, ok := p2shAddress(s[2:22], net)
		if !ok {
			return Result{Type: Pay2ScriptHash}, true
		}
		return Result{Type: Pay2ScriptHash, Addresses: []string{addr}}, true

	case len(s) == 22 && s[0] == opFalse && s[1] == 0x14:
		addr, ok := p2wpkhAddress(s[2:22], net)
		if !ok {
			return Result{Type: Pay2WitnessPublicKeyHash}, true
		}
		return Result{Type: Pay2WitnessPublicKeyHash, Addresses: []string{addr}}, true

	case len(s) == 34 && s[0] == opFalse && s[1] == 0x20:
		addr, ok := p2wshAddress(s[2:34], net)
		if !ok {
			return Result{Type: Pay2WitnessScriptHash}, true
		}
		return Result{Type: Pay2WitnessScriptHash, Addresses: []string{addr}}, true

	case isWitnessProgram(s):
		// Any other witness version (v1..v16, including taproot's v1):
		// spec's closed enumeration has no dedicated tag and makes no
		// promise of address derivation for it.
		return Result{Type: WitnessProgram}, true

	case len(s) > 0 && s[0] == opReturn:
		return Result{Type: OpReturn}, true
	}
	return Result{}, false
}

// isWitnessProgram matches OP_0..OP_16 followed by a single push of
// 2..40 bytes and nothing else, excluding the v0/20-byte and v0/32-byte
// shapes already matched above by classifyStandard.
func isWitnessProgram(s []byte) bool {
	if len(s) < 4 || len(s) > 42 {
		return false
	}
	ver, ok := opN(s[0])
	if !ok || ver < 0 || ver > 16 {
		return false
	}
	chunks, ok := parseChunks(s[1:])
	if !ok || len(chunks) != 1 || chunks[0].data == nil {
		return false
	}
	n := len(chunks[0].data)
	return n >= 2 && n <= 40
}

// classifyBareMultiSig matches the structural shape <M> <pubkey1>..<pubkeyN>
// <N> OP_CHECKMULTISIG[VERIFY] per spec §4.2 rule 3: M and N must decode as
// OP_N with 1<=M, 1<=N, and chunk_count == N+3. Address derivation maps
// each pubkey through the same hash160 path as P2PK; any single pubkey
// parse failure degrades the whole result to an empty address list while
// the type classification still succeeds, exactly as spec requires.
func classifyBareMultiSig(s []byte, net *chaincfg.Params) (Result, bool) {
	chunks, ok := parseChunks(s)
	if !ok || len(chunks) < 4 {
		return Result{}, false
	}
	last := chunks[len(chunks)-1]
	if last.data != nil || (last.op != opCheckMultiSig && last.op != opCheckMultiSigVerify) {
		return Result{}, false
	}
	nChunk := chunks[len(chunks)-2]
	if nChunk.data != nil {
		return Result{}, false
	}
	n, ok := opN(nChunk.op)
	if !ok || n < 1 {
		return Result{}, false
	}
	mChunk := chunks[0]
	if mChunk.data != nil {
		return Result{}, false
	}
	m, ok := opN(mChunk.op)
	if !ok || m < 1 {
		return Result{}, false
	}
	if len(chunks) != n+3 {
		return Result{}, false
	}

	pubKeyChunks := chunks[1 : 1+n]
	addrs := make([]string, 0, n)
	for _, c := range pubKeyChunks {
		if c.data == nil {
			return Result{Type: Pay2MultiSig}, true
		}
		addr, ok := pubKeyAddress(c.data, net)
		if !ok {
			return Result{Type: Pay2MultiSig}, true
		}
		addrs = append(addrs, addr)
	}
	return Result{Type: Pay2MultiSig, Addresses: addrs}, true
}
