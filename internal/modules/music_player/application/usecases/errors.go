package usecases

import "errors"

// User-facing errors for the music player module.
var (
	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrNotPlaying is returned when no song is currently playing.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrAlreadyPaused is returned when trying to pause while already paused.
	ErrAlreadyPaused = errors.New("playback is already paused")

	// ErrNotPaused is returned when trying to resume while not paused.
	ErrNotPaused = errors.New("playback is not paused")

	// ErrNoResults is returned when a query yields no songs.
	ErrNoResults = errors.New("no results found")

	// ErrLoadFailed is returned when every lookup provider failed.
	ErrLoadFailed = errors.New("failed to load songs")

	// ErrConnectionFailed is returned when the bot cannot join the voice channel.
	ErrConnectionFailed = errors.New("could not join the voice channel, try again")

	// ErrSuperseded is returned when playback was stopped while the query was loading.
	ErrSuperseded = errors.New("playback was stopped before the songs were added")

	// ErrNoHistory is returned when there is no previous song.
	ErrNoHistory = errors.New("there is no previous song")

	// ErrInvalidLoopMode is returned for loop modes other than off, song and queue.
	ErrInvalidLoopMode = errors.New("loop mode must be off, song or queue")

	// ErrNothingToShuffle is returned when fewer than two songs are waiting.
	ErrNothingToShuffle = errors.New("need at least two upcoming songs to shuffle")

	// ErrInvalidPosition is returned when a seek position is outside the current song.
	ErrInvalidPosition = errors.New("invalid position for the current song")

	// ErrUnknownFilter is returned for filter names the player does not support.
	ErrUnknownFilter = errors.New("unknown filter")
)
