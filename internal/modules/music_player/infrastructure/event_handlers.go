package infrastructure

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// Default notification throttle per guild.
const (
	DefaultNotifyRate  = 1.0
	DefaultNotifyBurst = 5
)

// notificationSender posts notifications to a channel.
type notificationSender interface {
	SendNowPlaying(channelID snowflake.ID, info *NowPlayingInfo) (snowflake.ID, error)
	DeleteMessage(channelID, messageID snowflake.ID) error
	SendMessage(channelID snowflake.ID, message string) error
	SendError(channelID snowflake.ID, message string) error
}

// Ensure Notifier implements notificationSender.
var _ notificationSender = (*Notifier)(nil)

// nowPlayingMessage identifies the posted "Now Playing" message.
type nowPlayingMessage struct {
	channelID snowflake.ID
	messageID snowflake.ID
}

// NotificationEventHandler turns playback events into Discord messages.
// It keeps at most one "Now Playing" message per guild.
type NotificationEventHandler struct {
	notifier     notificationSender
	userInfoProv UserInfoProvider

	limit rate.Limit
	burst int

	mu         sync.Mutex
	nowPlaying map[snowflake.ID]nowPlayingMessage
	limiters   map[snowflake.ID]*rate.Limiter
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
// Each guild may send burst messages at once and limit messages per second after that.
func NewNotificationEventHandler(
	notifier notificationSender,
	userInfoProv UserInfoProvider,
	limit float64,
	burst int,
) *NotificationEventHandler {
	if limit <= 0 {
		limit = DefaultNotifyRate
	}
	if burst <= 0 {
		burst = DefaultNotifyBurst
	}
	return &NotificationEventHandler{
		notifier:     notifier,
		userInfoProv: userInfoProv,
		limit:        rate.Limit(limit),
		burst:        burst,
		nowPlaying:   make(map[snowflake.ID]nowPlayingMessage),
		limiters:     make(map[snowflake.ID]*rate.Limiter),
	}
}

// HandlePlaybackEvent sends the message for the event.
func (h *NotificationEventHandler) HandlePlaybackEvent(event domain.PlaybackEvent) error {
	switch event.Type {
	case domain.EventSongStarted:
		h.clearNowPlaying(event.GuildID)
		return h.handleSongStarted(event)

	case domain.EventSongsEnqueued:
		// A song that starts right away gets a "Now Playing" message instead
		if event.Position == 0 && event.Count <= 1 {
			return nil
		}
		return h.send(event, h.notifier.SendMessage, enqueuedMessage(event))

	case domain.EventPlaybackError:
		h.clearNowPlaying(event.GuildID)
		title := "the song"
		if event.Song != nil {
			title = fmt.Sprintf("**%s**", event.Song.Title)
		}
		return h.send(event, h.notifier.SendError, fmt.Sprintf("Could not play %s, skipping.", title))

	case domain.EventQueueEnded:
		h.clearNowPlaying(event.GuildID)
		return h.send(event, h.notifier.SendMessage, "Queue finished.")

	case domain.EventPlaybackStopped:
		h.clearNowPlaying(event.GuildID)
		return nil

	case domain.EventDisconnected:
		h.clearNowPlaying(event.GuildID)
		return h.send(event, h.notifier.SendError, "Disconnected from the voice channel. The queue has been kept.")

	case domain.EventSessionReaped:
		h.clearNowPlaying(event.GuildID)
		return h.send(event, h.notifier.SendMessage, "Left the voice channel due to inactivity.")

	default:
		return nil
	}
}

// Forget drops per-guild notification state.
func (h *NotificationEventHandler) Forget(guildID snowflake.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.nowPlaying, guildID)
	delete(h.limiters, guildID)
}

func (h *NotificationEventHandler) handleSongStarted(event domain.PlaybackEvent) error {
	if event.Song == nil || event.NotificationChannelID == 0 {
		return nil
	}
	if !h.allow(event.GuildID) {
		slog.Debug("throttled now playing notification", "guild", event.GuildID)
		return nil
	}

	slog.Debug("sending now playing notification",
		"guild", event.GuildID,
		"title", event.Song.Title,
	)

	requesterName, requesterAvatarURL := "Unknown", ""
	if h.userInfoProv != nil && event.Song.RequestedBy != 0 {
		userInfo, err := h.userInfoProv.GetUserInfo(event.GuildID, event.Song.RequestedBy)
		if err != nil {
			slog.Warn("failed to fetch requester info for now playing",
				"guild", event.GuildID,
				"requester", event.Song.RequestedBy,
				"error", err,
			)
		} else {
			requesterName = userInfo.DisplayName
			requesterAvatarURL = userInfo.AvatarURL
		}
	}

	messageID, err := h.notifier.SendNowPlaying(event.NotificationChannelID, &NowPlayingInfo{
		Song:               *event.Song,
		RequesterName:      requesterName,
		RequesterAvatarURL: requesterAvatarURL,
		StartedAt:          event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to send now playing notification: %w", err)
	}

	h.mu.Lock()
	h.nowPlaying[event.GuildID] = nowPlayingMessage{channelID: event.NotificationChannelID, messageID: messageID}
	h.mu.Unlock()
	return nil
}

// clearNowPlaying deletes the guild's "Now Playing" message, if any.
func (h *NotificationEventHandler) clearNowPlaying(guildID snowflake.ID) {
	h.mu.Lock()
	msg, ok := h.nowPlaying[guildID]
	delete(h.nowPlaying, guildID)
	h.mu.Unlock()

	if !ok {
		return
	}

	slog.Debug("deleting now playing message", "guild", guildID, "message_id", msg.messageID)
	if err := h.notifier.DeleteMessage(msg.channelID, msg.messageID); err != nil {
		slog.Warn("failed to delete now playing message", "guild", guildID, "error", err)
	}
}

func (h *NotificationEventHandler) send(
	event domain.PlaybackEvent,
	sendFunc func(snowflake.ID, string) error,
	message string,
) error {
	if event.NotificationChannelID == 0 {
		return nil
	}
	if !h.allow(event.GuildID) {
		slog.Debug("throttled notification", "guild", event.GuildID, "type", event.Type)
		return nil
	}
	return sendFunc(event.NotificationChannelID, message)
}

func (h *NotificationEventHandler) allow(guildID snowflake.ID) bool {
	h.mu.Lock()
	limiter, ok := h.limiters[guildID]
	if !ok {
		limiter = rate.NewLimiter(h.limit, h.burst)
		h.limiters[guildID] = limiter
	}
	h.mu.Unlock()

	return limiter.Allow()
}

func enqueuedMessage(event domain.PlaybackEvent) string {
	if event.Count > 1 {
		return fmt.Sprintf("Added **%d** songs to the queue.", event.Count)
	}
	if event.Song != nil {
		return fmt.Sprintf("Added **%s** to the queue at position %d.", event.Song.Title, event.Position)
	}
	return "Added to the queue."
}

// Ensure NotificationEventHandler implements ports.PlaybackEventHandler.
var _ ports.PlaybackEventHandler = (*NotificationEventHandler)(nil)
