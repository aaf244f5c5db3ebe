package inference

import "errors"

var (
	// ErrDisabled is returned by Generate when the engine is not enabled.
	ErrDisabled = errors.New("inference engine disabled")
	// ErrUnsafeTopology indicates a deployment that would load the model in
	// more than one process. It is fatal at startup.
	ErrUnsafeTopology = errors.New("unsafe inference topology")
	ErrTimeout        = errors.New("inference call timed out")
	ErrEmptyResponse  = errors.New("inference returned empty response")
	ErrBackend        = errors.New("inference backend error")
)
