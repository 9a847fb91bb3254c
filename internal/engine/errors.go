package engine

import "errors"

// Terminal conditions surfaced to the caller verbatim. None are retried
// internally; store I/O failures propagate unwrapped alongside these.
var (
	ErrExperimentNotFound  = errors.New("experiment not found")
	ErrExperimentNotActive = errors.New("experiment is not active")
	ErrTargetingRejected   = errors.New("user does not match targeting rules")
	ErrNotAssigned         = errors.New("user has no assignment for experiment")
	ErrInvalidDefinition   = errors.New("invalid experiment definition")
)
