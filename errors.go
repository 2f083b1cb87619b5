package beam

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrInvalidConfig indicates generation parameters failed validation.
	ErrInvalidConfig = errors.New("beam: invalid generator configuration")

	// ErrModelStep indicates the model step function failed or returned a
	// malformed distribution. The whole batch is abandoned; no partial
	// hypothesis lists are returned.
	ErrModelStep = errors.New("beam: model step failed")
)
