package decision

import "errors"

// Sentinel kinds for decision errors.
var (
	ErrUnknownSection = errors.New("decision: unknown section")
)
