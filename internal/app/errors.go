package service

import "errors"

// Sentinel kinds for session errors.
var (
	ErrMissingGuess       = errors.New("please make a guess (Fake or Real) before checking")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrBusy               = errors.New("session is busy, try again")
	ErrStopped            = errors.New("session stopped")
)
