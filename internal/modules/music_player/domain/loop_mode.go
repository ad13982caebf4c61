package domain

import "strings"

// LoopMode is the policy applied to a song once it finishes.
type LoopMode int

const (
	LoopModeOff   LoopMode = iota // Default: finished songs move to history
	LoopModeSong                  // Replay the current song indefinitely
	LoopModeQueue                 // Rotate finished songs to the tail of the queue
)

// String returns a human-readable representation of the loop mode.
func (m LoopMode) String() string {
	switch m {
	case LoopModeSong:
		return "song"
	case LoopModeQueue:
		return "queue"
	default:
		return "off"
	}
}

// ParseLoopMode converts a string to a LoopMode.
// It returns ErrInvalidLoopMode for anything outside off, song and queue.
func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return LoopModeOff, nil
	case "song":
		return LoopModeSong, nil
	case "queue":
		return LoopModeQueue, nil
	default:
		return LoopModeOff, ErrInvalidLoopMode
	}
}
