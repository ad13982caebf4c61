package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// VoiceStateProvider looks up where users are connected.
type VoiceStateProvider interface {
	// GetUserVoiceChannel returns the voice channel the user is connected to in the guild.
	// Returns nil if the user is not in a voice channel.
	GetUserVoiceChannel(guildID, userID snowflake.ID) (*snowflake.ID, error)
}
