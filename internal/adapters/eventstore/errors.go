package eventstore

import "errors"

// Sentinel kinds for event log errors.
var (
	ErrNotFound = errors.New("interview not found")
	// ErrCorruptLog indicates a gap or out-of-order sequence in a
	// stored history. It should never occur if Append is correct; its
	// presence signals a bug, and callers must abort loudly.
	ErrCorruptLog = errors.New("corrupt event log")
	ErrBadRequest = errors.New("invalid append request")
)
