package chainreader

import (
	"github.com/btcsuite/btclog"

	"chainreader/utxo"
)

// log is the package-level logger used by the facade and its iterators.
// It is disabled by default; embedding applications wire it up with
// UseLogger the same way btcsuite libraries expose logging without
// depending on a concrete backend.
var log = btclog.Disabled

// UseLogger sets the logger used by this package and fans it out to every
// subsystem package that carries its own logger, the same way a btcsuite
// node's top-level UseLogger wires up each of its subsystems. Call it
// before constructing an Explorer if you want construction messages
// logged too.
func UseLogger(logger btclog.Logger) {
	log = logger
	utxo.UseLogger(logger)
}
