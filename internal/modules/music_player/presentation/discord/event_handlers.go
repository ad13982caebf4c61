package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

const forgetTimeout = 10 * time.Second

// VoiceForwarder receives the bot's voice gateway events.
type VoiceForwarder interface {
	OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate)
	OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate)
}

// GuildForgetter drops everything kept for a guild.
type GuildForgetter interface {
	Forget(ctx context.Context, guildID snowflake.ID) error
}

// NotificationForgetter drops per-guild notification state.
type NotificationForgetter interface {
	Forget(guildID snowflake.ID)
}

// EventHandlers handles Discord gateway events for the music player.
type EventHandlers struct {
	voice         VoiceForwarder
	player        GuildForgetter
	notifications NotificationForgetter
}

// NewEventHandlers creates a new EventHandlers. notifications may be nil.
func NewEventHandlers(
	voice VoiceForwarder,
	player GuildForgetter,
	notifications NotificationForgetter,
) *EventHandlers {
	return &EventHandlers{
		voice:         voice,
		player:        player,
		notifications: notifications,
	}
}

// HandleVoiceStateUpdate forwards voice state updates to the transport.
func (h *EventHandlers) HandleVoiceStateUpdate(_ *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	h.voice.OnVoiceStateUpdate(event)
}

// HandleVoiceServerUpdate forwards voice server updates to the transport.
func (h *EventHandlers) HandleVoiceServerUpdate(_ *discordgo.Session, event *discordgo.VoiceServerUpdate) {
	h.voice.OnVoiceServerUpdate(event)
}

// HandleGuildDelete evicts a guild the bot was removed from.
// Outages also arrive as GuildDelete, flagged unavailable, and are ignored.
func (h *EventHandlers) HandleGuildDelete(_ *discordgo.Session, event *discordgo.GuildDelete) {
	if event.Guild == nil || event.Unavailable {
		return
	}

	guildID, err := snowflake.Parse(event.ID)
	if err != nil {
		slog.Error("failed to parse guild ID in guild delete", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), forgetTimeout)
	defer cancel()

	if err := h.player.Forget(ctx, guildID); err != nil {
		slog.Error("failed to forget guild", "guild", guildID, "error", err)
	}
	if h.notifications != nil {
		h.notifications.Forget(guildID)
	}
}
