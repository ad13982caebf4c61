package infrastructure

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// UserInfo contains display info for a guild member.
type UserInfo struct {
	DisplayName string
	AvatarURL   string
}

// UserInfoProvider looks up display info for requesters.
type UserInfoProvider interface {
	GetUserInfo(guildID, userID snowflake.ID) (*UserInfo, error)
}

// Ensure DiscordUserInfoProvider implements UserInfoProvider.
var _ UserInfoProvider = (*DiscordUserInfoProvider)(nil)

// memberFetcher is the part of the Discord session used to look up members.
type memberFetcher interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// DiscordUserInfoProvider implements UserInfoProvider using a Discord session.
type DiscordUserInfoProvider struct {
	session memberFetcher
}

// NewDiscordUserInfoProvider creates a new DiscordUserInfoProvider.
func NewDiscordUserInfoProvider(session memberFetcher) *DiscordUserInfoProvider {
	return &DiscordUserInfoProvider{session: session}
}

// GetUserInfo fetches display info for a user in a guild.
func (p *DiscordUserInfoProvider) GetUserInfo(guildID, userID snowflake.ID) (*UserInfo, error) {
	member, err := p.session.GuildMember(guildID.String(), userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild member: %w", err)
	}

	return &UserInfo{
		DisplayName: getDisplayName(member),
		AvatarURL:   member.AvatarURL(""),
	}, nil
}

// getDisplayName returns the effective display name for a guild member.
// Priority: guild nickname > global display name > username.
func getDisplayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}
