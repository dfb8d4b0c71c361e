package evalstore

import "errors"

// Sentinel kinds for evaluation store errors.
var (
	ErrNotFound      = errors.New("evaluation not found")
	ErrAlreadyExists = errors.New("evaluation already persisted")
)
