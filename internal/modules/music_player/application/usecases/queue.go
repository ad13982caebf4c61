package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/engine"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// DefaultPageSize is the default number of songs per page in queue list.
const DefaultPageSize = 10

// PlayInput contains the input for the Play use case.
type PlayInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	Query                 string
}

// PlayOutput contains the result of the Play use case.
type PlayOutput struct {
	Songs    []domain.Song
	Position int  // 0-indexed position of the first song (0 = now playing)
	Started  bool // playback started with these songs
}

// QueueListInput contains the input for the QueueList use case.
type QueueListInput struct {
	GuildID  snowflake.ID
	Page     int // 1-indexed page number
	PageSize int // Items per page (optional, defaults to 10)
}

// QueueListOutput contains the result of the QueueList use case.
type QueueListOutput struct {
	CurrentSong    *domain.Song
	Paused         bool
	Songs          []domain.Song // upcoming songs on this page
	PageOffset     int           // queue position of Songs[0]
	TotalSongs     int           // upcoming songs across all pages
	TotalDuration  time.Duration
	CurrentPage    int
	TotalPages     int
	LoopMode       domain.LoopMode
	ShuffleEnabled bool
	Volume         int
	Filters        []domain.Filter
}

// QueueService handles adding to and inspecting the queue.
type QueueService struct {
	player     Player
	voiceState ports.VoiceStateProvider
}

// NewQueueService creates a new QueueService.
func NewQueueService(player Player, voiceState ports.VoiceStateProvider) *QueueService {
	return &QueueService{
		player:     player,
		voiceState: voiceState,
	}
}

// Play resolves the query and enqueues the songs, joining the user's voice channel if idle.
func (q *QueueService) Play(ctx context.Context, input PlayInput) (*PlayOutput, error) {
	channelID, err := q.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user voice channel: %w", err)
	}
	if channelID == nil {
		return nil, ErrUserNotInVoice
	}

	result, err := q.player.Play(ctx, engine.PlayRequest{
		GuildID:               input.GuildID,
		VoiceChannelID:        *channelID,
		NotificationChannelID: input.NotificationChannelID,
		RequesterID:           input.UserID,
		Query:                 input.Query,
	})

	var connErr *domain.ConnectionError
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoResults), errors.Is(err, domain.ErrEmptyQuery):
		return nil, ErrNoResults
	case errors.Is(err, engine.ErrSuperseded):
		return nil, ErrSuperseded
	case errors.As(err, &connErr):
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	default:
		var resErr *domain.ResolutionError
		if errors.As(err, &resErr) {
			return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}
		return nil, err
	}

	return &PlayOutput{
		Songs:    result.Songs,
		Position: result.Position,
		Started:  result.Started,
	}, nil
}

// List returns a page of the upcoming songs.
func (q *QueueService) List(ctx context.Context, input QueueListInput) (*QueueListOutput, error) {
	snap, err := q.player.Snapshot(ctx, input.GuildID)
	if err != nil {
		return nil, err
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	page := input.Page
	if page <= 0 {
		page = 1
	}

	// Pagination applies to upcoming songs only
	upcoming := snap.Upcoming()
	totalSongs := len(upcoming)
	totalPages := (totalSongs + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	// Clamp page to valid range
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, totalSongs)

	var pageSongs []domain.Song
	if start < totalSongs {
		pageSongs = upcoming[start:end]
	}

	return &QueueListOutput{
		CurrentSong:    snap.CurrentSong,
		Paused:         snap.Paused,
		Songs:          pageSongs,
		PageOffset:     start + 1,
		TotalSongs:     totalSongs,
		TotalDuration:  snap.TotalDuration(),
		CurrentPage:    page,
		TotalPages:     totalPages,
		LoopMode:       snap.LoopMode,
		ShuffleEnabled: snap.ShuffleEnabled,
		Volume:         snap.Volume,
		Filters:        snap.Filters,
	}, nil
}
