package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrPanic           = errors.New("handler panicked")
	ErrShutdownTimeout = errors.New("shutdown timed out")
)
