package domain

import (
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
)

var (
	ErrInvalidLoopMode = errors.New("invalid loop mode")
	ErrUnknownFilter   = errors.New("unknown filter")
	ErrNoResults       = errors.New("no results found")
	ErrEmptyQuery      = errors.New("query is empty")
)

// ResolutionError is returned when a query cannot be turned into songs.
type ResolutionError struct {
	Query string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %q: %v", e.Query, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ConnectionError is returned when a voice transport session cannot be opened.
type ConnectionError struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to voice channel %s in guild %s: %v", e.ChannelID, e.GuildID, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// StreamError is returned when a provider fails to produce audio for a song.
type StreamError struct {
	Provider string
	Song     string
	Err      error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("provider %s failed to stream %q: %v", e.Provider, e.Song, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
