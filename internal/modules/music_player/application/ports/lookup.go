package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// LookupProvider is an external source of song metadata.
type LookupProvider interface {
	Name() string

	// Supports reports whether the provider can handle the query kind.
	Supports(kind domain.QueryKind) bool

	// Lookup returns the songs for the query in source order.
	// An empty result with a nil error means nothing was found.
	Lookup(ctx context.Context, query domain.SearchQuery) ([]domain.Song, error)
}

// SongResolver turns a user query into songs attributed to the requester.
type SongResolver interface {
	Resolve(ctx context.Context, query string, requester snowflake.ID) ([]domain.Song, error)
}
