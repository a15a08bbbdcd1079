package inference

import "errors"

var (
	// ErrInference indicates the engine was unavailable, rejected the input
	// tensors, or produced unusable output.
	ErrInference = errors.New("inference: engine failed")

	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("inference: pool is closed")

	// ErrSessionClosed is returned by engines used after Close.
	ErrSessionClosed = errors.New("inference: session is closed")
)
