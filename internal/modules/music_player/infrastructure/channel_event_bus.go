package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// DefaultEventBufferSize is the default buffer size for the event channel.
const DefaultEventBufferSize = 100

// Compile-time check that ChannelEventBus implements ports.NotificationSink.
var _ ports.NotificationSink = (*ChannelEventBus)(nil)

// ChannelEventBus provides a channel-based notification sink that fans
// playback events out to handlers on a dispatcher goroutine.
type ChannelEventBus struct {
	events   chan domain.PlaybackEvent
	handlers []ports.PlaybackEventHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

// NewChannelEventBus creates a new ChannelEventBus with the given buffer size.
func NewChannelEventBus(bufferSize int) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &ChannelEventBus{
		events: make(chan domain.PlaybackEvent, bufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

func (b *ChannelEventBus) dispatch() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.events:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.handlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				if err := handler.HandlePlaybackEvent(event); err != nil {
					slog.Warn("playback event handler failed",
						"type", event.Type,
						"guild", event.GuildID,
						"error", err,
					)
				}
			}
		}
	}
}

// Send publishes a playback event.
// Non-blocking: if the channel buffer is full, the event is dropped with a warning.
func (b *ChannelEventBus) Send(event domain.PlaybackEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", event.Type)
		return
	}

	select {
	case b.events <- event:
		slog.Debug("published event", "type", event.Type, "guild", event.GuildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", event.Type, "guild", event.GuildID)
	}
}

// Subscribe registers a handler for every playback event.
func (b *ChannelEventBus) Subscribe(handler ports.PlaybackEventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Close closes the event channel and stops the dispatcher.
// After calling Close, Send will no longer deliver events.
func (b *ChannelEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	close(b.events)
	b.wg.Wait()

	slog.Debug("channel event bus closed")
}
