package ports

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// Session is a live voice connection plus audio player for one guild.
type Session struct {
	ID        string
	GuildID   snowflake.ID
	ChannelID snowflake.ID
}

// Resource is audio bound to a session.
type Resource struct {
	ID        string
	SessionID string
	Provider  string
}

// AudioRequest describes what to bind to a session.
type AudioRequest struct {
	Song    domain.Song
	Stream  StreamLocator
	Volume  int
	Filters []domain.Filter
}

// Transport opens voice sessions and produces audio on them.
// Implementations report asynchronous outcomes through the SignalHandler.
type Transport interface {
	// Open joins the voice channel. Failures are *domain.ConnectionError.
	Open(ctx context.Context, guildID, channelID snowflake.ID) (Session, error)

	// BindAudio starts streaming on the session, replacing any bound audio.
	// Failures are *domain.StreamError.
	BindAudio(ctx context.Context, session Session, req AudioRequest) (Resource, error)

	// Stop ends the bound audio without emitting a finished signal.
	Stop(ctx context.Context, session Session) error

	Pause(ctx context.Context, session Session, paused bool) error
	Seek(ctx context.Context, session Session, position time.Duration) error
	SetVolume(ctx context.Context, session Session, volume int) error
	SetFilters(ctx context.Context, session Session, filters []domain.Filter) error

	// Close leaves the voice channel. It is safe to call on a closed session.
	Close(ctx context.Context, session Session) error

	// SetSignalHandler registers the sole consumer of transport signals.
	SetSignalHandler(handler SignalHandler)
}

// SignalKind identifies an asynchronous transport outcome.
type SignalKind int

const (
	// SignalFinished means the bound resource completed normally.
	SignalFinished SignalKind = iota
	// SignalError means the bound resource failed while streaming.
	SignalError
	// SignalDisconnected means the platform dropped the session.
	SignalDisconnected
)

func (k SignalKind) String() string {
	switch k {
	case SignalFinished:
		return "finished"
	case SignalError:
		return "error"
	case SignalDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Signal is a typed message from the transport to the playback engine.
type Signal struct {
	Kind       SignalKind
	GuildID    snowflake.ID
	SessionID  string
	ResourceID string // empty for SignalDisconnected
	Err        error
}

// SignalHandler consumes transport signals.
type SignalHandler func(Signal)
