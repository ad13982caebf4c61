package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// PlaybackEventType identifies a playback notification.
type PlaybackEventType string

const (
	EventSongsEnqueued   PlaybackEventType = "songs_enqueued"
	EventSongStarted     PlaybackEventType = "song_started"
	EventQueueEnded      PlaybackEventType = "queue_ended"
	EventPlaybackStopped PlaybackEventType = "playback_stopped"
	EventPlaybackError   PlaybackEventType = "playback_error"
	EventDisconnected    PlaybackEventType = "disconnected"
	EventSessionReaped   PlaybackEventType = "session_reaped"
)

// PlaybackEvent is emitted by the playback engine to the notification sink.
type PlaybackEvent struct {
	Type                  PlaybackEventType `json:"type"`
	GuildID               snowflake.ID      `json:"guild_id"`
	NotificationChannelID snowflake.ID      `json:"notification_channel_id,omitempty"`
	Song                  *Song             `json:"song,omitempty"`
	Count                 int               `json:"count,omitempty"` // songs enqueued
	Position              int               `json:"position,omitempty"`
	Error                 string            `json:"error,omitempty"`
	OccurredAt            time.Time         `json:"occurred_at"`
}

// NewPlaybackEvent creates an event for the queue's guild and notification channel.
func NewPlaybackEvent(t PlaybackEventType, q *Queue) PlaybackEvent {
	return PlaybackEvent{
		Type:                  t,
		GuildID:               q.GuildID(),
		NotificationChannelID: q.NotificationChannelID(),
		OccurredAt:            time.Now().UTC(),
	}
}
