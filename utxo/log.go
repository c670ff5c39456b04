package utxo

import "github.com/btcsuite/btclog"

// log is this package's logger, disabled by default. Each subsystem
// package carries its own logger and UseLogger setter rather than sharing
// the root package's, matching the per-subsystem logging convention
// toole-brendan-shell's node packages use (e.g. mining/randomx's UseLogger).
var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
