package domain

import (
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Song is an immutable playable item produced by the song resolver.
// Songs are passed by value and never mutated after they enter a queue.
type Song struct {
	Title        string        `json:"title"`
	URL          string        `json:"url"` // canonical URL of the song
	Encoded      string        `json:"-"`   // Lavalink encoded track, empty when the song did not come from Lavalink
	Duration     time.Duration `json:"duration"`
	ThumbnailURL string        `json:"thumbnail_url,omitempty"`
	Author       string        `json:"author,omitempty"`
	Views        string        `json:"views,omitempty"`
	SourceName   string        `json:"source,omitempty"` // e.g., "youtube", "soundcloud"
	IsStream     bool          `json:"is_stream,omitempty"`
	RequestedBy  snowflake.ID  `json:"requested_by"`
}

// Source returns the parsed SongSource for this song.
func (s Song) Source() SongSource {
	return ParseSongSource(s.SourceName)
}

// Seekable reports whether a playback position can be set within the song.
func (s Song) Seekable() bool {
	return !s.IsStream && s.Duration > 0
}

// WithRequester returns a copy of the song attributed to the given user.
func (s Song) WithRequester(userID snowflake.ID) Song {
	s.RequestedBy = userID
	return s
}

// FormattedDuration returns the duration as a human-readable string (mm:ss or hh:mm:ss).
func (s Song) FormattedDuration() string {
	if s.IsStream {
		return "LIVE"
	}
	return FormatDuration(s.Duration)
}

// FormatDuration formats d as mm:ss, or hh:mm:ss when it spans an hour or more.
func FormatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
