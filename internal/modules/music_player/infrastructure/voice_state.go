package infrastructure

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
)

// VoiceStateProvider provides Discord voice state information from the gateway cache.
type VoiceStateProvider struct {
	state *discordgo.State
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(state *discordgo.State) *VoiceStateProvider {
	return &VoiceStateProvider{
		state: state,
	}
}

// GetUserVoiceChannel returns the voice channel ID that the user is currently in.
// Returns nil if the user is not in a voice channel.
func (v *VoiceStateProvider) GetUserVoiceChannel(guildID, userID snowflake.ID) (*snowflake.ID, error) {
	vs, err := v.state.VoiceState(guildID.String(), userID.String())
	if err != nil {
		if errors.Is(err, discordgo.ErrStateNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if vs.ChannelID == "" {
		return nil, nil
	}

	channelID, err := snowflake.Parse(vs.ChannelID)
	if err != nil {
		return nil, err
	}
	return &channelID, nil
}

// Ensure VoiceStateProvider implements ports.VoiceStateProvider.
var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)
