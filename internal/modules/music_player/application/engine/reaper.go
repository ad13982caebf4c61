package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type idleTimer struct {
	token uint64
	stop  func() bool
}

// IdleReaper keeps at most one idle timer per guild and reports expiries.
type IdleReaper struct {
	mu        sync.Mutex
	timers    map[snowflake.ID]*idleTimer
	nextToken uint64
	onExpire  func(guildID snowflake.ID)
	afterFunc func(d time.Duration, f func()) (stop func() bool)
}

// NewIdleReaper creates a reaper that calls onExpire when a guild's timer fires.
func NewIdleReaper(onExpire func(guildID snowflake.ID)) *IdleReaper {
	return &IdleReaper{
		timers:   make(map[snowflake.ID]*idleTimer),
		onExpire: onExpire,
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
	}
}

// Arm starts the guild's timer, replacing any outstanding one.
func (r *IdleReaper) Arm(guildID snowflake.ID, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[guildID]; ok {
		t.stop()
	}

	r.nextToken++
	token := r.nextToken
	r.timers[guildID] = &idleTimer{
		token: token,
		stop:  r.afterFunc(delay, func() { r.expire(guildID, token) }),
	}
	slog.Debug("idle timer armed", "guild", guildID, "delay", delay)
}

// Disarm cancels the guild's timer and reports whether one was outstanding.
func (r *IdleReaper) Disarm(guildID snowflake.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[guildID]
	if !ok {
		return false
	}
	t.stop()
	delete(r.timers, guildID)
	slog.Debug("idle timer disarmed", "guild", guildID)
	return true
}

// Armed reports whether the guild has an outstanding timer.
func (r *IdleReaper) Armed(guildID snowflake.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[guildID]
	return ok
}

// Stop cancels every outstanding timer.
func (r *IdleReaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for guildID, t := range r.timers {
		t.stop()
		delete(r.timers, guildID)
	}
}

func (r *IdleReaper) expire(guildID snowflake.ID, token uint64) {
	r.mu.Lock()
	t, ok := r.timers[guildID]
	if !ok || t.token != token {
		// rearmed or disarmed after this timer fired
		r.mu.Unlock()
		return
	}
	delete(r.timers, guildID)
	r.mu.Unlock()

	slog.Info("idle timer expired", "guild", guildID)
	r.onExpire(guildID)
}
