package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// SkipInput contains the input for the Skip use case.
type SkipInput struct {
	GuildID snowflake.ID
	Count   int // songs to skip including the current one, defaults to 1
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	SkippedSong *domain.Song
	NextSong    *domain.Song // nil if the queue is empty
}

// SeekInput contains the input for the Seek use case.
type SeekInput struct {
	GuildID  snowflake.ID
	Position time.Duration
}

// LoopOutput contains the result of the SetLoopMode use case.
type LoopOutput struct {
	Mode domain.LoopMode
}

// FilterOutput contains the result of the ToggleFilter use case.
type FilterOutput struct {
	Filter  domain.Filter
	Enabled bool
	Active  []domain.Filter
}

// PlaybackService handles playback operations.
type PlaybackService struct {
	player Player
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(player Player) *PlaybackService {
	return &PlaybackService{player: player}
}

// Pause pauses the current playback.
func (p *PlaybackService) Pause(ctx context.Context, guildID snowflake.ID) error {
	ok, err := p.player.Pause(ctx, guildID)
	if err != nil || ok {
		return err
	}

	snap, err := p.player.Snapshot(ctx, guildID)
	if err != nil {
		return err
	}
	if snap.Paused {
		return ErrAlreadyPaused
	}
	return ErrNotPlaying
}

// Resume resumes paused playback.
func (p *PlaybackService) Resume(ctx context.Context, guildID snowflake.ID) error {
	ok, err := p.player.Resume(ctx, guildID)
	if err != nil || ok {
		return err
	}

	snap, err := p.player.Snapshot(ctx, guildID)
	if err != nil {
		return err
	}
	if snap.Playing {
		return ErrNotPaused
	}
	return ErrNotPlaying
}

// Skip ends the current song and optionally drops more upcoming songs.
func (p *PlaybackService) Skip(ctx context.Context, input SkipInput) (*SkipOutput, error) {
	before, err := p.player.Snapshot(ctx, input.GuildID)
	if err != nil {
		return nil, err
	}

	ok, err := p.player.Skip(ctx, input.GuildID, max(input.Count, 1))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotPlaying
	}

	after, err := p.player.Snapshot(ctx, input.GuildID)
	if err != nil {
		return nil, err
	}
	return &SkipOutput{
		SkippedSong: before.CurrentSong,
		NextSong:    after.CurrentSong,
	}, nil
}

// Previous replays the most recently finished song.
func (p *PlaybackService) Previous(ctx context.Context, guildID snowflake.ID) (*domain.Song, error) {
	ok, err := p.player.Previous(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoHistory
	}

	snap, err := p.player.Snapshot(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return snap.CurrentSong, nil
}

// Stop clears the queue and leaves the voice channel.
func (p *PlaybackService) Stop(ctx context.Context, guildID snowflake.ID) error {
	_, err := p.player.Stop(ctx, guildID)
	return err
}

// SetVolume sets the volume and returns the clamped value.
func (p *PlaybackService) SetVolume(ctx context.Context, guildID snowflake.ID, volume int) (int, error) {
	return p.player.SetVolume(ctx, guildID, volume)
}

// SetLoopMode sets the loop mode by name.
func (p *PlaybackService) SetLoopMode(ctx context.Context, guildID snowflake.ID, mode string) (*LoopOutput, error) {
	ok, err := p.player.SetLoop(ctx, guildID, mode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidLoopMode
	}

	snap, err := p.player.Snapshot(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return &LoopOutput{Mode: snap.LoopMode}, nil
}

// Shuffle randomizes the upcoming songs.
func (p *PlaybackService) Shuffle(ctx context.Context, guildID snowflake.ID) error {
	ok, err := p.player.Shuffle(ctx, guildID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNothingToShuffle
	}
	return nil
}

// Seek jumps to a position in the current song.
func (p *PlaybackService) Seek(ctx context.Context, input SeekInput) error {
	snap, err := p.player.Snapshot(ctx, input.GuildID)
	if err != nil {
		return err
	}
	if snap.CurrentSong == nil {
		return ErrNotPlaying
	}

	ok, err := p.player.Seek(ctx, input.GuildID, input.Position)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidPosition
	}
	return nil
}

// ToggleFilter flips an audio filter.
func (p *PlaybackService) ToggleFilter(ctx context.Context, guildID snowflake.ID, name string) (*FilterOutput, error) {
	enabled, err := p.player.ToggleFilter(ctx, guildID, name)
	if errors.Is(err, domain.ErrUnknownFilter) {
		return nil, ErrUnknownFilter
	}
	if err != nil {
		return nil, err
	}

	snap, err := p.player.Snapshot(ctx, guildID)
	if err != nil {
		return nil, err
	}
	filter, _ := domain.ParseFilter(name)
	return &FilterOutput{Filter: filter, Enabled: enabled, Active: snap.Filters}, nil
}
