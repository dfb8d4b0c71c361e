package schema

import "errors"

// Sentinel kinds for schema errors.
var (
	ErrInvalidSchema  = errors.New("invalid schema")
	ErrUnknownSection = errors.New("unknown section")
)
