package infrastructure

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

const (
	youtubeWatchURL      = "https://www.youtube.com/watch?v="
	youtubeMusicWatchURL = "https://music.youtube.com/watch?v="
)

// YouTubeSearchLookup searches YouTube without going through Lavalink.
type YouTubeSearchLookup struct {
	client *ytsearch.Client
}

// NewYouTubeSearchLookup creates a new YouTubeSearchLookup.
func NewYouTubeSearchLookup() *YouTubeSearchLookup {
	return &YouTubeSearchLookup{client: ytsearch.NewClient(nil)}
}

func (l *YouTubeSearchLookup) Name() string { return "ytsearch" }

func (l *YouTubeSearchLookup) Supports(kind domain.QueryKind) bool {
	return kind == domain.QueryKindSearch
}

// Lookup returns the search results in ranking order.
func (l *YouTubeSearchLookup) Lookup(ctx context.Context, query domain.SearchQuery) ([]domain.Song, error) {
	res, err := l.client.Search(ctx, query.Query)
	if err != nil {
		return nil, err
	}

	var songs []domain.Song
	for _, r := range res.Results {
		if r.VideoID == "" {
			continue
		}
		duration := parseClockDuration(r.Duration)
		songs = append(songs, domain.Song{
			Title:      r.Title,
			URL:        youtubeWatchURL + r.VideoID,
			Duration:   duration,
			Author:     r.Channel,
			SourceName: string(domain.SongSourceYouTube),
			IsStream:   duration == 0,
		})
	}
	return songs, nil
}

// YouTubeMusicLookup searches YouTube Music tracks.
type YouTubeMusicLookup struct{}

// NewYouTubeMusicLookup creates a new YouTubeMusicLookup.
func NewYouTubeMusicLookup() *YouTubeMusicLookup {
	return &YouTubeMusicLookup{}
}

func (l *YouTubeMusicLookup) Name() string { return "ytmusic" }

func (l *YouTubeMusicLookup) Supports(kind domain.QueryKind) bool {
	return kind == domain.QueryKindSearch
}

// Lookup returns the first page of track results.
func (l *YouTubeMusicLookup) Lookup(ctx context.Context, query domain.SearchQuery) ([]domain.Song, error) {
	type outcome struct {
		result *ytmusic.SearchResult
		err    error
	}

	// The client has no context support, so give up waiting when ctx ends.
	done := make(chan outcome, 1)
	go func() {
		r, err := ytmusic.TrackSearch(query.Query).Next()
		done <- outcome{result: r, err: err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out = <-done:
	}
	if out.err != nil {
		return nil, out.err
	}
	if out.result == nil {
		return nil, nil
	}

	var songs []domain.Song
	for _, track := range out.result.Tracks {
		if track.VideoID == "" {
			continue
		}
		song := domain.Song{
			Title:      track.Title,
			URL:        youtubeMusicWatchURL + track.VideoID,
			Duration:   time.Duration(track.Duration) * time.Second,
			SourceName: string(domain.SongSourceYouTube),
		}
		if len(track.Artists) > 0 {
			song.Author = track.Artists[0].Name
		}
		if n := len(track.Thumbnails); n > 0 {
			song.ThumbnailURL = track.Thumbnails[n-1].URL
		}
		songs = append(songs, song)
	}
	return songs, nil
}

// parseClockDuration parses durations like "3:20" or "1:05:20".
func parseClockDuration(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}

	var total time.Duration
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + time.Duration(n)
	}
	return total * time.Second
}

// Ensure the search lookups implement ports.LookupProvider.
var (
	_ ports.LookupProvider = (*YouTubeSearchLookup)(nil)
	_ ports.LookupProvider = (*YouTubeMusicLookup)(nil)
)
