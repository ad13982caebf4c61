package ports

import (
	"context"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// StreamLocator tells the transport where to find a song's audio.
type StreamLocator struct {
	Provider   string
	Encoded    string // pre-resolved Lavalink track, preferred when set
	Identifier string // URL or identifier the transport can load
}

// StreamProvider locates playable audio for a song.
// Providers are tried in order; the engine moves to the next one when a bind fails.
type StreamProvider interface {
	Name() string
	Locate(ctx context.Context, song domain.Song) (StreamLocator, error)
}
