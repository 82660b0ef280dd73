package progression

import "errors"

// Sentinel kinds for progression errors.
var (
	ErrLoad    = errors.New("load progression failed")
	ErrPersist = errors.New("persist progression failed")

	ErrDuplicateEntry = errors.New("submission already on the leaderboard")
)
