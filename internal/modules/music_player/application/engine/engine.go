// Package engine drives per-guild playback through the transition table in domain.
//
// Every guild gets a worker goroutine that owns the guild's Queue and Transport
// Session. Control commands, transport signals and idle timer expiries are all
// delivered to that worker as jobs and run one at a time in arrival order.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"go.opentelemetry.io/otel/metric"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

const (
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultOpTimeout     = 20 * time.Second
	DefaultMailboxSize   = 64
	DefaultSignalTimeout = 2 * time.Second
)

// Config tunes the engine.
type Config struct {
	IdleTimeout time.Duration
	OpTimeout   time.Duration // upper bound for one job, and separately for each song bind
	MailboxSize int
	// SignalTimeout bounds how long a transport signal waits for room in a full mailbox.
	SignalTimeout time.Duration
}

// Dependencies are the collaborators the engine drives.
type Dependencies struct {
	Store     domain.QueueStore
	Resolver  ports.SongResolver
	Transport ports.Transport
	Streams   []ports.StreamProvider // tried in order when binding audio
	Sink      ports.NotificationSink // optional
	Meter     metric.Meter           // optional, defaults to the global meter provider
}

// Engine is the playback state machine for all guilds.
type Engine struct {
	store     domain.QueueStore
	resolver  ports.SongResolver
	transport ports.Transport
	streams   []ports.StreamProvider
	sink      ports.NotificationSink
	reaper    *IdleReaper
	metrics   *metrics
	cfg       Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	players map[snowflake.ID]*guildPlayer
	closed  bool
}

// New creates an engine and registers it as the transport's signal handler.
func New(deps Dependencies, cfg Config) (*Engine, error) {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultOpTimeout
	}
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = DefaultMailboxSize
	}
	if cfg.SignalTimeout <= 0 {
		cfg.SignalTimeout = DefaultSignalTimeout
	}

	m, err := newMetrics(deps.Meter)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:     deps.Store,
		resolver:  deps.Resolver,
		transport: deps.Transport,
		streams:   deps.Streams,
		sink:      deps.Sink,
		metrics:   m,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		players:   make(map[snowflake.ID]*guildPlayer),
	}
	e.reaper = NewIdleReaper(e.handleIdleExpired)
	e.transport.SetSignalHandler(e.HandleSignal)

	return e, nil
}

type job func(ctx context.Context, p *guildPlayer)

// guildPlayer is the worker-owned state of one guild.
type guildPlayer struct {
	guildID     snowflake.ID
	queue       *domain.Queue
	state       domain.PlaybackState
	session     *ports.Session
	resource    *ports.Resource
	providerIdx int   // stream provider behind resource
	lastErr     error // set by effects that report a failure to the caller

	mailbox chan job
	quit    chan struct{}
}

// player returns the guild's worker, starting it on first use.
func (e *Engine) player(guildID snowflake.ID) (*guildPlayer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if p, ok := e.players[guildID]; ok {
		return p, nil
	}

	p := &guildPlayer{
		guildID: guildID,
		queue:   e.store.GetQueue(guildID),
		state:   domain.StateIdle,
		mailbox: make(chan job, e.cfg.MailboxSize),
		quit:    make(chan struct{}),
	}
	e.players[guildID] = p

	e.wg.Add(1)
	go e.run(p)

	return p, nil
}

func (e *Engine) existingPlayer(guildID snowflake.ID) (*guildPlayer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.players[guildID]
	return p, ok
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) run(p *guildPlayer) {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-p.quit:
			return
		case j := <-p.mailbox:
			ctx, cancel := context.WithTimeout(e.ctx, e.cfg.OpTimeout)
			j(ctx, p)
			cancel()
		}
	}
}

// opContext bounds a unit of transport work independently of the job it runs in.
func (e *Engine) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(e.ctx, e.cfg.OpTimeout)
}

// post enqueues a job without waiting for it to run.
func (e *Engine) post(ctx context.Context, p *guildPlayer, j job) error {
	select {
	case p.mailbox <- j:
		return nil
	case <-p.quit:
		return ErrClosed
	case <-e.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the guild's worker and waits for its result.
// Once enqueued the job runs to completion even if ctx is cancelled.
func call[T any](ctx context.Context, e *Engine, guildID snowflake.ID, fn func(ctx context.Context, p *guildPlayer) T) (T, error) {
	var zero T

	p, err := e.player(guildID)
	if err != nil {
		return zero, err
	}
	return callOn(ctx, e, p, fn)
}

// callOn is call for a worker the caller already holds.
func callOn[T any](ctx context.Context, e *Engine, p *guildPlayer, fn func(ctx context.Context, p *guildPlayer) T) (T, error) {
	var zero T

	result := make(chan T, 1)
	if err := e.post(ctx, p, func(ctx context.Context, p *guildPlayer) {
		result <- fn(ctx, p)
	}); err != nil {
		return zero, err
	}

	select {
	case v := <-result:
		return v, nil
	case <-p.quit:
		return zero, ErrClosed
	case <-e.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// HandleSignal routes a transport signal to the guild's worker.
// Signals for guilds without a worker are dropped, as are signals that
// cannot be queued within Config.SignalTimeout.
func (e *Engine) HandleSignal(sig ports.Signal) {
	p, ok := e.existingPlayer(sig.GuildID)
	if !ok {
		slog.Debug("dropping signal for unknown guild", "guild", sig.GuildID, "kind", sig.Kind)
		return
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.SignalTimeout)
	defer cancel()
	if err := e.post(ctx, p, func(ctx context.Context, p *guildPlayer) {
		e.handleSignal(ctx, p, sig)
	}); err != nil {
		slog.Warn("failed to deliver transport signal", "guild", sig.GuildID, "kind", sig.Kind, "error", err)
	}
}

func (e *Engine) handleIdleExpired(guildID snowflake.ID) {
	p, ok := e.existingPlayer(guildID)
	if !ok {
		return
	}
	if err := e.post(e.ctx, p, func(ctx context.Context, p *guildPlayer) {
		if p.state != domain.StateIdle || !p.queue.IsEmpty() || p.session == nil {
			slog.Debug("idle timer expired on active guild, ignoring", "guild", p.guildID, "state", p.state)
			return
		}
		e.fire(ctx, p, domain.TriggerReap)
	}); err != nil {
		slog.Warn("failed to deliver idle expiry", "guild", guildID, "error", err)
	}
}

// Forget evicts a guild: playback is stopped, its worker exits and its queue is deleted.
func (e *Engine) Forget(ctx context.Context, guildID snowflake.ID) error {
	if _, ok := e.existingPlayer(guildID); ok {
		if _, err := call(ctx, e, guildID, func(ctx context.Context, p *guildPlayer) bool {
			return e.fire(ctx, p, domain.TriggerStop)
		}); err != nil {
			return err
		}

		e.mu.Lock()
		if p, ok := e.players[guildID]; ok {
			close(p.quit)
			delete(e.players, guildID)
		}
		e.mu.Unlock()
	}

	e.reaper.Disarm(guildID)
	e.store.Delete(guildID)
	slog.Info("forgot guild", "guild", guildID)
	return nil
}

// Close stops every worker and closes all open sessions.
func (e *Engine) Close(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.reaper.Stop()
	e.cancel()
	e.wg.Wait()

	// workers have exited, so their players are safe to touch here
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.players {
		if p.session == nil {
			continue
		}
		p.queue.SetPlaying(false)
		e.closeSession(ctx, p)
		e.notify(p, domain.EventPlaybackStopped, nil)
	}
}

// Sessions returns the number of guilds with an open transport session.
func (e *Engine) Sessions(ctx context.Context) int {
	e.mu.Lock()
	players := make([]*guildPlayer, 0, len(e.players))
	for _, p := range e.players {
		players = append(players, p)
	}
	e.mu.Unlock()

	count := 0
	for _, p := range players {
		open, err := call(ctx, e, p.guildID, func(_ context.Context, p *guildPlayer) bool {
			return p.session != nil
		})
		if err == nil && open {
			count++
		}
	}
	return count
}
