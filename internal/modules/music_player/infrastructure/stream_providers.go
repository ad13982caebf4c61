package infrastructure

import (
	"context"
	"errors"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// ErrNoStreamSource is returned when a song carries nothing a provider can play.
var ErrNoStreamSource = errors.New("song has no playable source")

// LavalinkStreamProvider plays songs through Lavalink's own source managers,
// preferring the encoded track captured at lookup time.
type LavalinkStreamProvider struct{}

// NewLavalinkStreamProvider creates a new LavalinkStreamProvider.
func NewLavalinkStreamProvider() *LavalinkStreamProvider {
	return &LavalinkStreamProvider{}
}

func (p *LavalinkStreamProvider) Name() string { return "lavalink" }

// Locate returns the song's encoded track, or its URL for Lavalink to load.
func (p *LavalinkStreamProvider) Locate(_ context.Context, song domain.Song) (ports.StreamLocator, error) {
	if song.Encoded == "" && song.URL == "" {
		return ports.StreamLocator{}, ErrNoStreamSource
	}
	return ports.StreamLocator{
		Provider:   p.Name(),
		Encoded:    song.Encoded,
		Identifier: song.URL,
	}, nil
}

// Ensure LavalinkStreamProvider implements ports.StreamProvider.
var _ ports.StreamProvider = (*LavalinkStreamProvider)(nil)
