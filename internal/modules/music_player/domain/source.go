package domain

import "strings"

// SongSource represents the origin platform of a song.
type SongSource string

const (
	SongSourceYouTube    SongSource = "youtube"
	SongSourceSoundCloud SongSource = "soundcloud"
	SongSourceTwitch     SongSource = "twitch"
	SongSourceHTTP       SongSource = "http"
	SongSourceOther      SongSource = "other"
)

// ParseSongSource converts a source name string to a SongSource.
func ParseSongSource(name string) SongSource {
	switch strings.ToLower(name) {
	case "youtube", "youtube music":
		return SongSourceYouTube
	case "soundcloud":
		return SongSourceSoundCloud
	case "twitch":
		return SongSourceTwitch
	case "http":
		return SongSourceHTTP
	default:
		return SongSourceOther
	}
}

// Color returns the embed accent color associated with the source.
func (s SongSource) Color() int {
	switch s {
	case SongSourceYouTube:
		return 0xFF0000
	case SongSourceSoundCloud:
		return 0xFF5500
	case SongSourceTwitch:
		return 0x9146FF
	default:
		return 0x08C404
	}
}
