package ports

import (
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// NotificationSink receives playback events. Send must not block the caller
// and its failures never affect playback.
type NotificationSink interface {
	Send(event domain.PlaybackEvent)
}

// PlaybackEventHandler consumes events fanned out by a NotificationSink.
type PlaybackEventHandler interface {
	HandlePlaybackEvent(event domain.PlaybackEvent) error
}
