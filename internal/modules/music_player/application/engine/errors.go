package engine

import "errors"

var (
	// ErrSuperseded is returned by Play when the queue was reset while the query was resolving.
	ErrSuperseded = errors.New("request was superseded by a queue reset")
	// ErrClosed is returned once the engine has shut down.
	ErrClosed = errors.New("playback engine is closed")
)
