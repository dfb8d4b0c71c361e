package metrics

import "errors"

// ErrObserveFailed marks a failed metrics observation.
var ErrObserveFailed = errors.New("metrics observe failed")
