package event

import "errors"

// Sentinel kinds for event model errors.
var (
	ErrUnknownType = errors.New("unknown event type")
	ErrBadActor    = errors.New("unknown actor type")
)
