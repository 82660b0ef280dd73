package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNoOverlay  = errors.New("no image to show")
	ErrTimeout    = errors.New("gave up waiting for the verdict")
)
