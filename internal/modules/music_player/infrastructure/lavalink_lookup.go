package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// trackLoader loads tracks from a Lavalink node.
type trackLoader interface {
	LoadTracks(ctx context.Context, identifier string) (*lavalink.LoadResult, error)
}

// LavalinkLookup resolves every kind of query through Lavalink's source managers.
type LavalinkLookup struct {
	loader trackLoader
}

// NewLavalinkLookup creates a new LavalinkLookup.
func NewLavalinkLookup(loader trackLoader) *LavalinkLookup {
	return &LavalinkLookup{loader: loader}
}

func (l *LavalinkLookup) Name() string { return "lavalink" }

func (l *LavalinkLookup) Supports(domain.QueryKind) bool { return true }

// Lookup loads the query and converts the result to songs.
func (l *LavalinkLookup) Lookup(ctx context.Context, query domain.SearchQuery) ([]domain.Song, error) {
	result, err := l.loader.LoadTracks(ctx, query.LavalinkQuery())
	if err != nil {
		return nil, err
	}

	switch data := result.Data.(type) {
	case lavalink.Track:
		return []domain.Song{songFromTrack(data)}, nil
	case lavalink.Playlist:
		return songsFromTracks(data.Tracks), nil
	case lavalink.Search:
		return songsFromTracks(data), nil
	case lavalink.Exception:
		return nil, fmt.Errorf("lavalink failed to load %q: %s", query.Query, data.Message)
	default:
		return nil, nil
	}
}

func songsFromTracks(tracks []lavalink.Track) []domain.Song {
	songs := make([]domain.Song, len(tracks))
	for i, track := range tracks {
		songs[i] = songFromTrack(track)
	}
	return songs
}

// songFromTrack converts a Lavalink track to a Song.
func songFromTrack(track lavalink.Track) domain.Song {
	info := track.Info
	return domain.Song{
		Title:        info.Title,
		URL:          derefString(info.URI),
		Encoded:      track.Encoded,
		Duration:     time.Duration(info.Length) * time.Millisecond,
		ThumbnailURL: derefString(info.ArtworkURL),
		Author:       info.Author,
		SourceName:   info.SourceName,
		IsStream:     info.IsStream,
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ensure LavalinkLookup implements ports.LookupProvider.
var _ ports.LookupProvider = (*LavalinkLookup)(nil)
