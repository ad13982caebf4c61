package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorRed   = 0xE74C3C
	colorGreen = 0x08C404
)

// discordMessenger is the part of the Discord session used to post messages.
type discordMessenger interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// NowPlayingInfo contains the data shown in a "Now Playing" embed.
type NowPlayingInfo struct {
	Song               domain.Song
	RequesterName      string
	RequesterAvatarURL string
	StartedAt          time.Time
}

// Notifier sends notifications to Discord channels.
type Notifier struct {
	session    discordMessenger
	httpClient *http.Client
}

// NewNotifier creates a new Notifier.
func NewNotifier(session discordMessenger) *Notifier {
	return &Notifier{
		session: session,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
func (n *Notifier) SendNowPlaying(channelID snowflake.ID, info *NowPlayingInfo) (snowflake.ID, error) {
	song := info.Song
	source := song.Source()

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: "Now Playing",
		},
		Title:     song.Title,
		URL:       song.URL,
		Color:     source.Color(),
		Timestamp: info.StartedAt.UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Artist",
				Value:  valueOr(song.Author, "Unknown"),
				Inline: true,
			},
			{
				Name:   "Duration",
				Value:  song.FormattedDuration(),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("Requested by %s", info.RequesterName),
			IconURL: info.RequesterAvatarURL,
		},
	}

	if thumbnailURL := n.getBestThumbnail(source, song.URL, song.ThumbnailURL); thumbnailURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{
			URL: thumbnailURL,
		}
	}

	msg, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	if err != nil {
		return 0, err
	}
	return snowflake.Parse(msg.ID)
}

// DeleteMessage deletes a message from the channel.
func (n *Notifier) DeleteMessage(channelID snowflake.ID, messageID snowflake.ID) error {
	return n.session.ChannelMessageDelete(channelID.String(), messageID.String())
}

// SendMessage sends an informational embed to the channel.
func (n *Notifier) SendMessage(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorGreen,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// getBestThumbnail attempts to find the best quality thumbnail for the song.
// For YouTube, it tries different quality levels (maxresdefault, sddefault, etc.).
// For Twitch, it attempts to use a higher resolution version.
// For other sources, it returns the original artwork URL.
func (n *Notifier) getBestThumbnail(source domain.SongSource, songURL, fallbackURL string) string {
	switch source {
	case domain.SongSourceYouTube:
		if videoID := youtubeVideoID(songURL); videoID != "" {
			return n.getYouTubeThumbnail(videoID, fallbackURL)
		}
		return fallbackURL
	case domain.SongSourceTwitch:
		return n.getTwitchThumbnail(fallbackURL)
	default:
		return fallbackURL
	}
}

// getYouTubeThumbnail tries to find the highest quality YouTube thumbnail available.
func (n *Notifier) getYouTubeThumbnail(videoID string, fallbackURL string) string {
	qualities := []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, quality := range qualities {
		url := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", videoID, quality)
		if n.urlExists(ctx, url) {
			return url
		}
	}

	return fallbackURL
}

// getTwitchThumbnail tries to get a higher resolution Twitch thumbnail.
func (n *Notifier) getTwitchThumbnail(artworkURL string) string {
	if artworkURL == "" {
		return ""
	}

	// Try to get 1280x720 instead of 440x248
	highResURL := strings.Replace(artworkURL, "440x248", "1280x720", 1)
	if highResURL == artworkURL {
		return artworkURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if n.urlExists(ctx, highResURL) {
		return highResURL
	}

	return artworkURL
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (n *Notifier) urlExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// youtubeVideoID extracts the video ID from a YouTube or YouTube Music watch URL.
func youtubeVideoID(songURL string) string {
	if _, after, ok := strings.Cut(songURL, "v="); ok {
		id, _, _ := strings.Cut(after, "&")
		return id
	}
	if _, after, ok := strings.Cut(songURL, "youtu.be/"); ok {
		id, _, _ := strings.Cut(after, "?")
		return id
	}
	return ""
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
