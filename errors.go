package chainreader

import "chainreader/chainerr"

// Kind classifies the category of error a chainreader operation can return.
type Kind = chainerr.Kind

// Error is the single error type every exported chainreader operation
// returns. Use Is to branch on category instead of comparing strings.
type Error = chainerr.Error

// The five error categories from spec §7, re-exported for callers.
const (
	KindNotFound = chainerr.NotFound
	KindNotOpen  = chainerr.NotOpen
	KindIO       = chainerr.IO
	KindCorrupt  = chainerr.Corrupt
	KindConfig   = chainerr.Config
)

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool { return chainerr.Is(err, kind) }
