package line

import "errors"

var (
	// ErrNotAttached indicates a TickSource is run without a Ticker.
	ErrNotAttached = errors.New("no ticker attached")
	// ErrInterval indicates a non-positive tick interval.
	ErrInterval = errors.New("invalid tick interval")
)
