package judge

import "errors"

// Sentinel kinds for judge errors.
var (
	ErrJudgeUnavailable = errors.New("judge unavailable")
	ErrSchemaViolation  = errors.New("judge response failed schema validation")
)
