package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// PlayRequest asks the engine to enqueue the songs a query resolves to.
type PlayRequest struct {
	GuildID               snowflake.ID
	VoiceChannelID        snowflake.ID
	NotificationChannelID snowflake.ID
	RequesterID           snowflake.ID
	Query                 string
}

// PlayResult describes what Play enqueued.
type PlayResult struct {
	Songs    []domain.Song
	Position int  // index of the first enqueued song
	Started  bool // playback started because of this request
}

type playOutcome struct {
	result PlayResult
	err    error
}

// Play resolves the query and appends the songs to the guild's queue.
// An idle guild starts playing; otherwise the songs only wait in the queue.
func (e *Engine) Play(ctx context.Context, req PlayRequest) (PlayResult, error) {
	p, err := e.player(req.GuildID)
	if err != nil {
		return PlayResult{}, err
	}
	gen, err := callOn(ctx, e, p, func(_ context.Context, p *guildPlayer) uint64 {
		return p.queue.Generation()
	})
	if err != nil {
		return PlayResult{}, err
	}

	// resolution runs outside the worker so other commands are not held up
	songs, err := e.resolver.Resolve(ctx, req.Query, req.RequesterID)
	if err != nil {
		return PlayResult{}, err
	}

	// a forgotten guild must not be brought back by a late result
	if current, ok := e.existingPlayer(req.GuildID); !ok || current != p {
		slog.Info("discarding resolved songs for forgotten guild", "guild", req.GuildID, "query", req.Query)
		return PlayResult{}, ErrSuperseded
	}

	outcome, err := callOn(ctx, e, p, func(ctx context.Context, p *guildPlayer) playOutcome {
		return e.enqueue(ctx, p, req, songs, gen)
	})
	if errors.Is(err, ErrClosed) && !e.isClosed() {
		// the worker quit between the check above and the enqueue
		return PlayResult{}, ErrSuperseded
	}
	if err != nil {
		return PlayResult{}, err
	}
	return outcome.result, outcome.err
}

func (e *Engine) enqueue(ctx context.Context, p *guildPlayer, req PlayRequest, songs []domain.Song, gen uint64) playOutcome {
	q := p.queue
	if q.Generation() != gen {
		slog.Info("discarding resolved songs after queue reset", "guild", p.guildID, "query", req.Query)
		return playOutcome{err: ErrSuperseded}
	}

	q.SetNotificationChannelID(req.NotificationChannelID)
	if p.state == domain.StateIdle {
		q.SetVoiceChannelID(req.VoiceChannelID)
	}

	pos := q.Append(songs...)
	result := PlayResult{Songs: songs, Position: pos}
	e.notify(p, domain.EventSongsEnqueued, func(ev *domain.PlaybackEvent) {
		ev.Count = len(songs)
		ev.Position = pos
		if len(songs) == 1 {
			ev.Song = &songs[0]
		}
	})

	if p.state != domain.StateIdle {
		return playOutcome{result: result}
	}

	p.lastErr = nil
	e.fire(ctx, p, domain.TriggerStart)
	var connErr *domain.ConnectionError
	if errors.As(p.lastErr, &connErr) {
		// songs stay queued so the user can retry
		return playOutcome{result: result, err: connErr}
	}
	result.Started = p.state == domain.StatePlaying
	return playOutcome{result: result}
}

// Pause pauses a playing guild. It returns false outside Playing.
func (e *Engine) Pause(ctx context.Context, guildID snowflake.ID) (bool, error) {
	return call(ctx, e, guildID, func(ctx context.Context, p *guildPlayer) bool {
		return e.fire(ctx, p, domain.TriggerPause)
	})
}

// Resume resumes a paused guild. It returns false outside Paused.
func (e *Engine) Resume(ctx context.Context, guildID snowflake.ID) (bool, error) {
	return call(ctx, e, guildID, func(ctx context.Context, p *guildPlayer) bool {
		return e.fire(ctx, p, domain.TriggerResume)
	})
}

// Skip removes up to n-1 upcoming songs and ends the current one.
func (e *Engine) Skip(ctx context.Context, guildID snowflake.ID, n int) (bool, error) {
	return call(ctx, e, guildID, func(ctx context.Context, p *guildPlayer) bool {
		if p.state != domain.StatePlaying && p.state != domain.StatePaused {
			return false
		}
		p.queue.RemoveUpcoming(max(n, 1) - 1)
		return e.fire(ctx, p, domain.TriggerSkip)
	})
}

// Previous plays the most recent history entry again. It returns false when history is empty.
func (e *Engine) Previous(ctx context.Context, guildID snowflake.ID) (bool, error) {
	return call(ctx, e, guildID, func(ctx context.Context, p *guildPlayer) bool {
		if len(p.queue.History()) == 0 {
			return false
		}
		return e.fire(ctx, p, domain.TriggerPrevious)
	})
}

// Stop clears the queue and closes the guild's session.
func (e *Engine) Stop(ctx context.Context, guildID snowflake.ID) (bool, error) {
	return call(ctx, e, guildID, func(ctx context.Context, p *guildPlayer) bool {
		return e.fire(ctx, p, domain.TriggerStop)
	})
}

// SetVolume clamps and stores the volume, applying it to an open session.
// It returns the stored value.
func (e *Engine) SetVolume(ctx context.Context, guildID snowflake.ID, volume int) (int, error) {
	return call(ctx, e, guildID, func(ctx context.Context, p *guildPlayer) int {
		v := p.queue.SetVolume(volume)
		if p.session != nil {
			if err := e.transport.SetVolume(ctx, *p.session, v); err != nil {
				slog.Warn("failed to apply volume", "guild", p.guildID, "error", err)
			}
		}
		return v
	})
}

// SetLoop sets the loop mode from its name. Invalid names leave the mode unchanged and return false.
func (e *Engine) SetLoop(ctx context.Context, guildID snowflake.ID, mode string) (bool, error) {
	parsed, err := domain.ParseLoopMode(mode)
	if err != nil {
		return false, nil
	}
	return call(ctx, e, guildID, func(_ context.Context, p *guildPlayer) bool {
		p.queue.SetLoopMode(parsed)
		return true
	})
}

// Shuffle permutes the upcoming songs. It returns false with fewer than two upcoming songs.
func (e *Engine) Shuffle(ctx context.Context, guildID snowflake.ID) (bool, error) {
	return call(ctx, e, guildID, func(_ context.Context, p *guildPlayer) bool {
		return p.queue.ShuffleUpcoming()
	})
}

// Seek moves playback of the current song to position.
func (e *Engine) Seek(ctx context.Context, guildID snowflake.ID, position time.Duration) (bool, error) {
	return call(ctx, e, guildID, func(ctx context.Context, p *guildPlayer) bool {
		if p.state != domain.StatePlaying && p.state != domain.StatePaused {
			return false
		}
		head := p.queue.CurrentSong()
		if head == nil || !head.Seekable() || position < 0 || position > head.Duration {
			return false
		}
		if err := e.transport.Seek(ctx, *p.session, position); err != nil {
			slog.Warn("failed to seek", "guild", p.guildID, "error", err)
			return false
		}
		return true
	})
}

// ToggleFilter flips the named filter and reports whether it is now enabled.
func (e *Engine) ToggleFilter(ctx context.Context, guildID snowflake.ID, name string) (bool, error) {
	filter, err := domain.ParseFilter(name)
	if err != nil {
		return false, err
	}
	return call(ctx, e, guildID, func(ctx context.Context, p *guildPlayer) bool {
		enabled := p.queue.ToggleFilter(filter)
		if p.session != nil && p.resource != nil {
			if err := e.transport.SetFilters(ctx, *p.session, p.queue.Filters()); err != nil {
				slog.Warn("failed to apply filters", "guild", p.guildID, "error", err)
			}
		}
		return enabled
	})
}

// Snapshot returns a detached copy of the guild's queue.
func (e *Engine) Snapshot(ctx context.Context, guildID snowflake.ID) (domain.QueueSnapshot, error) {
	return call(ctx, e, guildID, func(_ context.Context, p *guildPlayer) domain.QueueSnapshot {
		return p.queue.Snapshot(p.state)
	})
}
