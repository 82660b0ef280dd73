package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrClosed        = errors.New("store closed")
)
