package usecases

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/engine"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// Player is the playback control surface the services drive.
// Operations that are invalid in the current state return false.
type Player interface {
	Play(ctx context.Context, req engine.PlayRequest) (engine.PlayResult, error)
	Pause(ctx context.Context, guildID snowflake.ID) (bool, error)
	Resume(ctx context.Context, guildID snowflake.ID) (bool, error)
	Skip(ctx context.Context, guildID snowflake.ID, n int) (bool, error)
	Previous(ctx context.Context, guildID snowflake.ID) (bool, error)
	Stop(ctx context.Context, guildID snowflake.ID) (bool, error)
	SetVolume(ctx context.Context, guildID snowflake.ID, volume int) (int, error)
	SetLoop(ctx context.Context, guildID snowflake.ID, mode string) (bool, error)
	Shuffle(ctx context.Context, guildID snowflake.ID) (bool, error)
	Seek(ctx context.Context, guildID snowflake.ID, position time.Duration) (bool, error)
	ToggleFilter(ctx context.Context, guildID snowflake.ID, name string) (bool, error)
	Snapshot(ctx context.Context, guildID snowflake.ID) (domain.QueueSnapshot, error)
}

var _ Player = (*engine.Engine)(nil)
