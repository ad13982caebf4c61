package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// fire applies trigger t to the guild. It returns false when t is not valid
// in the current state or its effect could not be carried out.
func (e *Engine) fire(ctx context.Context, p *guildPlayer, t domain.Trigger) bool {
	tr, ok := domain.NextTransition(p.state, t)
	if !ok {
		slog.Debug("trigger rejected", "guild", p.guildID, "state", p.state, "trigger", t)
		return false
	}

	from := p.state
	p.state = tr.Next
	slog.Debug("playback transition",
		"guild", p.guildID,
		"from", from,
		"trigger", t,
		"to", tr.Next,
		"effect", tr.Effect,
	)

	if err := e.apply(ctx, p, tr.Effect); err != nil {
		// only pause and resume can fail without moving on
		p.state = from
		slog.Warn("transition effect failed", "guild", p.guildID, "effect", tr.Effect, "error", err)
		return false
	}
	return true
}

func (e *Engine) apply(ctx context.Context, p *guildPlayer, effect domain.Effect) error {
	switch effect {
	case domain.EffectNone:
	case domain.EffectBind:
		e.bindHead(ctx, p)
	case domain.EffectReportJoin:
		p.queue.SetPlaying(false)
		p.resource = nil
		e.notify(p, domain.EventPlaybackError, func(ev *domain.PlaybackEvent) {
			ev.Error = p.lastErr.Error()
		})
	case domain.EffectDropHead:
		e.dropHead(ctx, p)
	case domain.EffectPause:
		if err := e.transport.Pause(ctx, *p.session, true); err != nil {
			return fmt.Errorf("failed to pause: %w", err)
		}
		p.queue.SetPaused(true)
	case domain.EffectResume:
		if err := e.transport.Pause(ctx, *p.session, false); err != nil {
			return fmt.Errorf("failed to resume: %w", err)
		}
		p.queue.SetPaused(false)
	case domain.EffectSkipHead:
		e.stopResource(ctx, p)
		e.settleHead(p, true)
		e.advance(ctx, p)
	case domain.EffectSettleHead:
		p.resource = nil
		e.settleHead(p, false)
		e.advance(ctx, p)
	case domain.EffectRewind:
		p.queue.Rewind()
		e.advance(ctx, p)
	case domain.EffectArmReaper:
		p.queue.SetPlaying(false)
		p.resource = nil
		e.notify(p, domain.EventQueueEnded, nil)
		if p.session != nil {
			e.reaper.Arm(p.guildID, e.cfg.IdleTimeout)
		}
	case domain.EffectTeardown:
		e.reaper.Disarm(p.guildID)
		p.queue.Reset()
		e.closeSession(ctx, p)
		e.notify(p, domain.EventPlaybackStopped, nil)
		e.fire(ctx, p, domain.TriggerCleanedUp)
	case domain.EffectDetach:
		e.reaper.Disarm(p.guildID)
		p.queue.SetPlaying(false)
		p.queue.Invalidate()
		e.closeSession(ctx, p)
		e.notify(p, domain.EventDisconnected, nil)
		e.fire(ctx, p, domain.TriggerCleanedUp)
	case domain.EffectCloseIdle:
		e.closeSession(ctx, p)
		e.metrics.sessionsReaped.Add(ctx, 1)
		e.notify(p, domain.EventSessionReaped, nil)
		e.fire(ctx, p, domain.TriggerCleanedUp)
	default:
		return fmt.Errorf("unknown effect %v", effect)
	}
	return nil
}

// bindHead opens a session when needed and streams the head of the queue.
func (e *Engine) bindHead(ctx context.Context, p *guildPlayer) {
	e.reaper.Disarm(p.guildID)

	// each song gets its own deadline so a slow one cannot starve the songs after it
	bindCtx, cancel := e.opContext()
	defer cancel()

	if err := e.ensureSession(bindCtx, p); err != nil {
		p.lastErr = err
		e.fire(ctx, p, domain.TriggerConnectFail)
		return
	}

	head := p.queue.Head()
	res, idx, err := e.bindFrom(bindCtx, p, *head, 0)
	if err != nil {
		p.lastErr = err
		e.fire(ctx, p, domain.TriggerStreamFail)
		return
	}

	p.resource = &res
	p.providerIdx = idx
	p.queue.SetPlaying(true)
	p.queue.SetPaused(false)
	e.fire(ctx, p, domain.TriggerBound)

	e.metrics.songsStarted.Add(ctx, 1, providerAttr(res.Provider))
	e.notify(p, domain.EventSongStarted, func(ev *domain.PlaybackEvent) {
		ev.Song = head
	})
	slog.Info("song started", "guild", p.guildID, "title", head.Title, "provider", res.Provider)
}

func (e *Engine) ensureSession(ctx context.Context, p *guildPlayer) error {
	channelID := p.queue.VoiceChannelID()
	if p.session != nil && p.session.ChannelID == channelID {
		return nil
	}
	if p.session != nil {
		e.closeSession(ctx, p)
	}

	session, err := e.transport.Open(ctx, p.guildID, channelID)
	if err != nil {
		var connErr *domain.ConnectionError
		if !errors.As(err, &connErr) {
			err = &domain.ConnectionError{GuildID: p.guildID, ChannelID: channelID, Err: err}
		}
		slog.Error("failed to open session", "guild", p.guildID, "channel", channelID, "error", err)
		return err
	}

	p.session = &session
	e.metrics.sessionsOpened.Add(ctx, 1)
	e.metrics.activeSessions.Add(ctx, 1)
	slog.Info("session opened", "guild", p.guildID, "channel", channelID, "session", session.ID)
	return nil
}

// bindFrom walks the stream provider chain starting at index from.
func (e *Engine) bindFrom(ctx context.Context, p *guildPlayer, song domain.Song, from int) (ports.Resource, int, error) {
	var errs []error
	for i := from; i < len(e.streams); i++ {
		provider := e.streams[i]

		locator, err := provider.Locate(ctx, song)
		if err == nil {
			var res ports.Resource
			res, err = e.transport.BindAudio(ctx, *p.session, ports.AudioRequest{
				Song:    song,
				Stream:  locator,
				Volume:  p.queue.Volume(),
				Filters: p.queue.Filters(),
			})
			if err == nil {
				res.Provider = provider.Name()
				return res, i, nil
			}
		}

		e.metrics.streamFailures.Add(ctx, 1, providerAttr(provider.Name()))
		slog.Warn("stream provider failed", "guild", p.guildID, "provider", provider.Name(), "title", song.Title, "error", err)
		errs = append(errs, err)
	}

	return ports.Resource{}, -1, &domain.StreamError{
		Provider: "all",
		Song:     song.Title,
		Err:      errors.Join(errs...),
	}
}

// settleHead applies the loop mode to the finished head.
func (e *Engine) settleHead(p *guildPlayer, skipped bool) {
	switch p.queue.LoopMode() {
	case domain.LoopModeSong:
		if skipped {
			p.queue.Retire()
		}
	case domain.LoopModeQueue:
		p.queue.Rotate()
	default:
		p.queue.Retire()
	}
}

func (e *Engine) advance(ctx context.Context, p *guildPlayer) {
	if p.queue.IsEmpty() {
		e.fire(ctx, p, domain.TriggerExhausted)
		return
	}
	e.fire(ctx, p, domain.TriggerAdvance)
}

func (e *Engine) dropHead(ctx context.Context, p *guildPlayer) {
	head := p.queue.Head()
	p.resource = nil
	p.queue.Drop()

	e.metrics.songsDropped.Add(ctx, 1)
	e.notify(p, domain.EventPlaybackError, func(ev *domain.PlaybackEvent) {
		ev.Song = head
		if p.lastErr != nil {
			ev.Error = p.lastErr.Error()
		}
	})
	p.lastErr = nil
	e.advance(ctx, p)
}

func (e *Engine) stopResource(ctx context.Context, p *guildPlayer) {
	if p.session == nil || p.resource == nil {
		return
	}
	if err := e.transport.Stop(ctx, *p.session); err != nil {
		slog.Warn("failed to stop current song", "guild", p.guildID, "error", err)
	}
	p.resource = nil
}

func (e *Engine) closeSession(ctx context.Context, p *guildPlayer) {
	p.resource = nil
	if p.session == nil {
		return
	}
	if err := e.transport.Close(ctx, *p.session); err != nil {
		slog.Error("failed to close session", "guild", p.guildID, "session", p.session.ID, "error", err)
	}
	p.session = nil
	e.metrics.activeSessions.Add(ctx, -1)
	slog.Info("session closed", "guild", p.guildID)
}

// handleSignal reacts to a transport signal for the current session.
func (e *Engine) handleSignal(ctx context.Context, p *guildPlayer, sig ports.Signal) {
	if p.session == nil || sig.SessionID != p.session.ID {
		slog.Debug("ignoring signal for stale session", "guild", p.guildID, "kind", sig.Kind)
		return
	}

	switch sig.Kind {
	case ports.SignalDisconnected:
		slog.Warn("session dropped by platform", "guild", p.guildID)
		e.fire(ctx, p, domain.TriggerDisconnect)
	case ports.SignalFinished:
		if p.resource == nil || sig.ResourceID != p.resource.ID {
			return
		}
		e.fire(ctx, p, domain.TriggerSongEnd)
	case ports.SignalError:
		if p.resource == nil || sig.ResourceID != p.resource.ID {
			return
		}
		slog.Warn("stream failed during playback", "guild", p.guildID, "provider", p.resource.Provider, "error", sig.Err)
		e.metrics.streamFailures.Add(ctx, 1, providerAttr(p.resource.Provider))
		if e.rebind(p) {
			return
		}
		if sig.Err != nil {
			p.lastErr = sig.Err
		}
		e.fire(ctx, p, domain.TriggerStreamFail)
	}
}

// rebind restarts the head on the next provider after the one that failed.
func (e *Engine) rebind(p *guildPlayer) bool {
	next := p.providerIdx + 1
	if next >= len(e.streams) {
		return false
	}

	bindCtx, cancel := e.opContext()
	defer cancel()

	head := p.queue.Head()
	res, idx, err := e.bindFrom(bindCtx, p, *head, next)
	if err != nil {
		p.lastErr = err
		return false
	}

	p.resource = &res
	p.providerIdx = idx
	if p.queue.IsPaused() {
		if err := e.transport.Pause(bindCtx, *p.session, true); err != nil {
			slog.Warn("failed to keep rebound song paused", "guild", p.guildID, "error", err)
		}
	}
	slog.Info("song rebound on fallback provider", "guild", p.guildID, "provider", res.Provider)
	return true
}

func (e *Engine) notify(p *guildPlayer, t domain.PlaybackEventType, mutate func(*domain.PlaybackEvent)) {
	if e.sink == nil {
		return
	}
	ev := domain.NewPlaybackEvent(t, p.queue)
	if mutate != nil {
		mutate(&ev)
	}
	e.sink.Send(ev)
}
