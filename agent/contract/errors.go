package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
	ErrToolUnknown     = errors.New("tool not in registry")
	ErrCancelled       = errors.New("run cancelled")
)
