// Package resolver turns user queries into songs using an ordered chain of lookup providers.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/sync/singleflight"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

const (
	// MaxPlaylistSongs caps how many songs a single collection link may enqueue.
	MaxPlaylistSongs = 50
	// LookupTimeout bounds a shared lookup, which runs detached from any one caller.
	LookupTimeout = 30 * time.Second
)

var _ ports.SongResolver = (*Resolver)(nil)

// Resolver classifies queries and tries providers in priority order,
// falling through on errors and empty results.
type Resolver struct {
	providers     []ports.LookupProvider
	playlistLimit int
	group         singleflight.Group
}

// New creates a Resolver. A playlistLimit outside (0, MaxPlaylistSongs] uses MaxPlaylistSongs.
func New(playlistLimit int, providers ...ports.LookupProvider) *Resolver {
	if playlistLimit <= 0 || playlistLimit > MaxPlaylistSongs {
		playlistLimit = MaxPlaylistSongs
	}
	return &Resolver{
		providers:     providers,
		playlistLimit: playlistLimit,
	}
}

// Resolve returns the songs for query attributed to requester.
// Failures are *domain.ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, query string, requester snowflake.ID) ([]domain.Song, error) {
	q := domain.NewSearchQuery(query)
	if !q.IsValid() {
		return nil, &domain.ResolutionError{Query: query, Err: domain.ErrEmptyQuery}
	}

	// identical concurrent queries share one lookup; each caller still waits on its own ctx
	ch := r.group.DoChan(q.Kind.String()+":"+q.Query, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LookupTimeout)
		defer cancel()
		return r.lookup(lookupCtx, q)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, &domain.ResolutionError{Query: q.Query, Err: ctx.Err()}
	}
	if res.Err != nil {
		return nil, &domain.ResolutionError{Query: q.Query, Err: res.Err}
	}
	found := res.Val.([]domain.Song)
	shared := res.Shared

	limit := 1
	if q.Kind == domain.QueryKindPlaylist {
		limit = r.playlistLimit
	}
	if len(found) > limit {
		found = found[:limit]
	}

	songs := make([]domain.Song, len(found))
	for i, song := range found {
		songs[i] = song.WithRequester(requester)
	}

	slog.Debug("resolved query", "query", q.Query, "kind", q.Kind, "songs", len(songs), "shared", shared)
	return songs, nil
}

func (r *Resolver) lookup(ctx context.Context, q domain.SearchQuery) ([]domain.Song, error) {
	var errs []error
	empty := false
	for _, p := range r.providers {
		if !p.Supports(q.Kind) {
			continue
		}

		songs, err := p.Lookup(ctx, q)
		if err != nil {
			slog.Warn("lookup provider failed", "provider", p.Name(), "query", q.Query, "error", err)
			errs = append(errs, err)
			continue
		}
		if len(songs) == 0 {
			slog.Debug("lookup provider found nothing", "provider", p.Name(), "query", q.Query)
			empty = true
			continue
		}
		return songs, nil
	}

	if empty || len(errs) == 0 {
		return nil, domain.ErrNoResults
	}
	return nil, errors.Join(errs...)
}
